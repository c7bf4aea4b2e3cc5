package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"predictd/internal/engine"
	"predictd/internal/loader"
	"predictd/internal/store"
	"predictd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeTaxonomyError maps service-layer errors to HTTP statuses. Errors
// carrying their own status win; everything unrecognized is a 500.
func writeTaxonomyError(w http.ResponseWriter, err error) {
	var he HTTPError
	if errors.As(err, &he) {
		writeJSONError(w, he.StatusCode(), he.Error())
		return
	}
	switch {
	case loader.IsConfigNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case loader.IsModelUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case loader.IsModelCorrupt(err), store.IsIntegrity(err):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	case engine.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
