package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"predictd/internal/engine"
	"predictd/internal/loader"
	"predictd/internal/service"
	"predictd/internal/store"
)

func TestSwapErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"config not found", loader.ErrConfigNotFound("org-1"), http.StatusNotFound},
		{"model unavailable", loader.ErrModelUnavailable("org-1", errors.New("bucket gone")), http.StatusServiceUnavailable},
		{"model corrupt", loader.ErrModelCorrupt("org-1", "bad weights"), http.StatusBadGateway},
		{"integrity failure", store.ErrIntegrity("org-1/v1/model.json", "checksum mismatch"), http.StatusBadGateway},
		{"timeout", engine.ErrTimeout("org-1"), http.StatusGatewayTimeout},
		{"version mismatch carries own status", service.ErrVersionMismatch("org-1", "v9", "v3"), http.StatusConflict},
		{"generic", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{swapErr: tc.err}
			r := NewMux(svc)
			w := doJSON(t, r, http.MethodPost, "/models/org-1/swap", `{}`)
			if w.Code != tc.want {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestWrappedErrorsStillMap(t *testing.T) {
	wrapped := fmt.Errorf("swap failed: %w", loader.ErrConfigNotFound("org-1"))
	svc := &mockService{swapErr: wrapped}
	r := NewMux(svc)
	w := doJSON(t, r, http.MethodPost, "/models/org-1/swap", `{}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("wrapping defeated the mapping: status=%d", w.Code)
	}
}
