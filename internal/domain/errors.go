package domain

import "errors"

// Error taxonomy for the graph engine. Every failure is recoverable at the
// call boundary; the HTTP adapter maps these to caller-visible statuses with
// errors.Is.
var (
	// ErrValidation covers domain-invariant violations in a request payload,
	// such as a non-positive amount or an inverted time period.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAmount is a validation failure for amounts <= 0
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateID is returned when a create collides with an existing id
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownEntity is returned when a write references an entity id
	// that does not exist in the graph
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownTransaction is returned when a write references a
	// transaction id that does not exist in the graph
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrNotFound is returned when a read targets a nonexistent id
	ErrNotFound = errors.New("not found")

	// ErrInternal marks invariant violations that should be impossible
	// given write-time checks, e.g. a dangling reference discovered during
	// a read. Callers get a generic computation error, never corrupted
	// derived state.
	ErrInternal = errors.New("internal error")
)
