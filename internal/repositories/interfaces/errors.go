package interfaces

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrVersionConflict is returned when a versioned update matched the
	// document ID but not its expected version. The caller saw stale state
	// and should re-read before retrying.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)
