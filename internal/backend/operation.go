package backend

import (
	"context"
	"errors"
)

// Operation is a single named unit of backend work. The mesh treats it as
// opaque: it either produces a result or fails with an error.
type Operation func(ctx context.Context) (any, error)

// Error kinds that indicate a request-level problem rather than a transient
// backend fault. Services wrap these so callers can inspect them with
// errors.Is instead of matching on message text.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the result shape of every service's health check.
type HealthStatus struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}
