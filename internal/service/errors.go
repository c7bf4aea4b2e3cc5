package service

import (
	"errors"
	"fmt"
	"net/http"
)

// versionMismatchError signals a swap that resolved to a different version
// than the caller asserted. It carries its own HTTP status.
type versionMismatchError struct {
	orgID string
	want  string
	got   string
}

func (e versionMismatchError) Error() string {
	return fmt.Sprintf("swap version mismatch for %s: requested %s, config resolves to %s", e.orgID, e.want, e.got)
}

func (e versionMismatchError) StatusCode() int { return http.StatusConflict }

// ErrVersionMismatch constructs a versionMismatchError.
func ErrVersionMismatch(orgID, want, got string) error {
	return versionMismatchError{orgID: orgID, want: want, got: got}
}

// IsVersionMismatch reports whether err indicates a swap/configuration race.
func IsVersionMismatch(err error) bool {
	var t versionMismatchError
	return errors.As(err, &t)
}
