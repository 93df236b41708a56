package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/circuitbreaker"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondDetail(w, status, err.Error())
}

func isCircuitOpen(err error) bool {
	var open *circuitbreaker.OpenError
	return errors.As(err, &open)
}

// errorStatus maps a mesh error to an HTTP status. A breaker rejection and
// an exhausted-retries failure both surface as 503, but with different
// bodies so callers can tell them apart.
func errorStatus(err error) int {
	switch {
	case isCircuitOpen(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}
