package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned for an absent key or run id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run id is archived twice.
	// The run archive never updates a record in place.
	ErrDuplicateKey = errors.New("duplicate run id: run archive is append-only")

	// ErrInvalidInput is returned for an empty key or an incomplete run record.
	ErrInvalidInput = errors.New("invalid input")
)
