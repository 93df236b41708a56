package mesh

import (
	"context"
	"errors"
	"log/slog"

	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/circuitbreaker"
	"github.com/meshsim/gateway/internal/retry"
)

// Dispatcher is the single entry point for forwarding calls to backend
// services. It composes the circuit breaker registry with the retry policy:
// the breaker gets exactly one state-affecting attempt per Forward, and only
// failures the breaker allowed through escalate to direct, breaker-bypassing
// retries.
type Dispatcher struct {
	breakers *circuitbreaker.Registry
	retry    *retry.Policy
	logger   *slog.Logger
}

func NewDispatcher(breakers *circuitbreaker.Registry, policy *retry.Policy, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		breakers: breakers,
		retry:    policy,
		logger:   logger,
	}
}

// Forward routes one call through the resilience layer. A rejection by an
// open breaker propagates immediately; retrying a path known to be
// unavailable would only add pointless backoff cycles. Any other failure
// escalates to the retry policy, whose attempts do not feed back into the
// breaker's counters.
func (d *Dispatcher) Forward(ctx context.Context, service string, op backend.Operation) (any, error) {
	result, err := d.breakers.Call(ctx, service, op)
	if err == nil {
		return result, nil
	}

	var open *circuitbreaker.OpenError
	if errors.As(err, &open) {
		return nil, err
	}

	d.logger.Info("escalating to retry",
		slog.String("service", service),
		slog.String("error", err.Error()))

	return d.retry.Do(ctx, service, op)
}

// Breakers exposes the breaker registry for the observability surface.
func (d *Dispatcher) Breakers() *circuitbreaker.Registry {
	return d.breakers
}
