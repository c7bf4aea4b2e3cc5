package store

import (
	"context"
	"errors"
)

// Store reads and writes model artifacts addressed by a slash-separated
// path, e.g. "org-1/v3/model.json".
type Store interface {
	// Fetch returns the raw artifact bytes.
	Fetch(ctx context.Context, path string) ([]byte, error)
	// Put writes an artifact, replacing any previous bytes at path.
	Put(ctx context.Context, path string, data []byte) error
}

// notFoundError signals a missing artifact so callers can map it to the
// model-unavailable taxonomy instead of a generic failure.
type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "artifact not found: " + e.path }

// ErrNotFound constructs a notFoundError.
func ErrNotFound(path string) error { return notFoundError{path: path} }

// IsNotFound reports whether err indicates a missing artifact.
func IsNotFound(err error) bool {
	var t notFoundError
	return errors.As(err, &t)
}

// integrityError signals an artifact that exists but fails decryption or
// checksum verification.
type integrityError struct {
	path   string
	reason string
}

func (e integrityError) Error() string { return "artifact integrity: " + e.path + ": " + e.reason }

// ErrIntegrity constructs an integrityError.
func ErrIntegrity(path, reason string) error { return integrityError{path: path, reason: reason} }

// IsIntegrity reports whether err indicates a corrupt or tampered artifact.
func IsIntegrity(err error) bool {
	var t integrityError
	return errors.As(err, &t)
}
