package engine

import "errors"

// inferenceFailureError signals a session that errored or produced output
// the engine cannot interpret as a failure probability.
type inferenceFailureError struct {
	orgID string
	cause error
}

func (e inferenceFailureError) Error() string {
	return "inference failed: " + e.orgID + ": " + e.cause.Error()
}

func (e inferenceFailureError) Unwrap() error { return e.cause }

// ErrInferenceFailure constructs an inferenceFailureError.
func ErrInferenceFailure(orgID string, cause error) error {
	return inferenceFailureError{orgID: orgID, cause: cause}
}

// IsInferenceFailure reports whether err indicates a failed or malformed
// inference.
func IsInferenceFailure(err error) bool {
	var t inferenceFailureError
	return errors.As(err, &t)
}

// timeoutError signals a prediction that exceeded its time budget, for 504
// mapping.
type timeoutError struct{ orgID string }

func (e timeoutError) Error() string { return "prediction timed out: " + e.orgID }

// ErrTimeout constructs a timeoutError.
func ErrTimeout(orgID string) error { return timeoutError{orgID: orgID} }

// IsTimeout reports whether err indicates an exceeded time budget.
func IsTimeout(err error) bool {
	var t timeoutError
	return errors.As(err, &t)
}
