package loader

import "errors"

// configNotFoundError signals an organization with no model configuration
// on record, for 404 mapping.
type configNotFoundError struct{ orgID string }

func (e configNotFoundError) Error() string { return "model config not found: " + e.orgID }

// ErrConfigNotFound constructs a configNotFoundError.
func ErrConfigNotFound(orgID string) error { return configNotFoundError{orgID: orgID} }

// IsConfigNotFound reports whether err indicates a missing model config.
func IsConfigNotFound(err error) bool {
	var t configNotFoundError
	return errors.As(err, &t)
}

// modelUnavailableError signals a configuration whose artifact the store
// cannot produce, so the HTTP layer can return 503 instead of 500.
type modelUnavailableError struct {
	orgID string
	cause error
}

func (e modelUnavailableError) Error() string {
	return "model unavailable: " + e.orgID + ": " + e.cause.Error()
}

func (e modelUnavailableError) Unwrap() error { return e.cause }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(orgID string, cause error) error {
	return modelUnavailableError{orgID: orgID, cause: cause}
}

// IsModelUnavailable reports whether err indicates an unreachable artifact.
func IsModelUnavailable(err error) bool {
	var t modelUnavailableError
	return errors.As(err, &t)
}

// modelCorruptError signals artifact bytes that fetched fine but cannot be
// opened as a serving session.
type modelCorruptError struct {
	orgID  string
	reason string
}

func (e modelCorruptError) Error() string {
	return "model corrupt: " + e.orgID + ": " + e.reason
}

// ErrModelCorrupt constructs a modelCorruptError.
func ErrModelCorrupt(orgID, reason string) error {
	return modelCorruptError{orgID: orgID, reason: reason}
}

// IsModelCorrupt reports whether err indicates an unopenable artifact.
func IsModelCorrupt(err error) bool {
	var t modelCorruptError
	return errors.As(err, &t)
}
