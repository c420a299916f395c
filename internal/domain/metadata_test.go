package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_Unmarshal(t *testing.T) {
	raw := `{"channel":"branch","score":42.5,"flagged":true,"geo":{"country":"US","verified":false}}`

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, MetaString, m["channel"].Kind())
	assert.Equal(t, "branch", m["channel"].StringValue())
	assert.Equal(t, 42.5, m["score"].NumberValue())
	assert.True(t, m["flagged"].BoolValue())

	geo := m["geo"].MapValue()
	require.NotNil(t, geo)
	assert.Equal(t, "US", geo["country"].StringValue())
	assert.False(t, geo["verified"].BoolValue())
}

func TestMetadata_RejectsOpenVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"array", `{"tags":["a","b"]}`},
		{"null", `{"missing":null}`},
		{"nested array", `{"geo":{"coords":[1,2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Metadata
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &m))
		})
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	m := Metadata{
		"channel": String("wire"),
		"hops":    Number(3),
		"nested":  Map(Metadata{"ok": Bool(true)}),
	}

	encoded, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Metadata
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, m, decoded)
}
