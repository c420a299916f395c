package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is an opaque attribute bag attached to entities, transactions and
// SARs. Values are restricted to a closed variant type (string, number,
// boolean, or a nested mapping) so that serialization and equality stay
// well-defined.
type Metadata map[string]MetaValue

// MetaKind discriminates the variant held by a MetaValue
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaNumber
	MetaBool
	MetaMap
)

// MetaValue is one metadata value: string | number | bool | nested Metadata
type MetaValue struct {
	kind MetaKind
	str  string
	num  float64
	b    bool
	m    Metadata
}

// String constructs a string MetaValue
func String(s string) MetaValue { return MetaValue{kind: MetaString, str: s} }

// Number constructs a numeric MetaValue
func Number(n float64) MetaValue { return MetaValue{kind: MetaNumber, num: n} }

// Bool constructs a boolean MetaValue
func Bool(b bool) MetaValue { return MetaValue{kind: MetaBool, b: b} }

// Map constructs a nested MetaValue
func Map(m Metadata) MetaValue { return MetaValue{kind: MetaMap, m: m} }

// Kind returns the variant discriminator
func (v MetaValue) Kind() MetaKind { return v.kind }

// StringValue returns the string variant, or "" for other kinds
func (v MetaValue) StringValue() string { return v.str }

// NumberValue returns the numeric variant, or 0 for other kinds
func (v MetaValue) NumberValue() float64 { return v.num }

// BoolValue returns the boolean variant, or false for other kinds
func (v MetaValue) BoolValue() bool { return v.b }

// MapValue returns the nested mapping, or nil for other kinds
func (v MetaValue) MapValue() Metadata { return v.m }

// MarshalJSON encodes the held variant directly
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetaString:
		return json.Marshal(v.str)
	case MetaNumber:
		return json.Marshal(v.num)
	case MetaBool:
		return json.Marshal(v.b)
	case MetaMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("metadata: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON accepts a string, number, boolean or object. Arrays and
// nulls are rejected to keep the variant closed.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	mv, err := metaValueFrom(raw)
	if err != nil {
		return err
	}
	*v = mv
	return nil
}

func metaValueFrom(raw any) (MetaValue, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return MetaValue{}, fmt.Errorf("metadata: bad number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case map[string]any:
		nested := make(Metadata, len(t))
		for k, rv := range t {
			mv, err := metaValueFrom(rv)
			if err != nil {
				return MetaValue{}, err
			}
			nested[k] = mv
		}
		return Map(nested), nil
	default:
		return MetaValue{}, fmt.Errorf("metadata: unsupported value type %T", raw)
	}
}
