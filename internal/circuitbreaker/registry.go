package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meshsim/gateway/internal/backend"
)

// BreakerStatus is a read-only snapshot of one breaker, exposed on the
// mesh status endpoint.
type BreakerStatus struct {
	State        string     `json:"state"`
	FailureCount int        `json:"failure_count"`
	LastFailure  *time.Time `json:"last_failure"`
}

// Registry is the sole owner of circuit breakers, one per service name.
// It gates and records exactly one invocation attempt per Call.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*Breaker
	threshold int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewRegistry(threshold int, timeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
}

// GetBreaker returns the breaker for a service, creating it on first use.
func (r *Registry) GetBreaker(service string) *Breaker {
	r.mutex.RLock()
	cb, exists := r.breakers[service]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[service]; exists {
		return cb
	}

	cb = newBreaker(service, r.threshold, r.timeout)
	r.breakers[service] = cb
	return cb
}

// Call invokes op through the service's breaker. An open breaker fails fast
// with *OpenError without touching the backend; otherwise the single attempt
// is invoked and its outcome recorded. Backend errors come back wrapped with
// the service name.
func (r *Registry) Call(ctx context.Context, service string, op backend.Operation) (any, error) {
	cb := r.GetBreaker(service)

	state, err := cb.allow()
	if err != nil {
		r.logger.Warn("call rejected, circuit open",
			slog.String("service", service))
		return nil, err
	}

	if state == StateHalfOpen {
		r.logger.Info("circuit breaker half-open, probing",
			slog.String("service", service))
	}

	result, err := op(ctx)
	if err != nil {
		failures, opened := cb.recordFailure()
		r.logger.Warn("service call failed",
			slog.String("service", service),
			slog.Int("failures", failures),
			slog.Int("threshold", r.threshold),
			slog.String("error", err.Error()))
		if opened {
			r.logger.Error("circuit breaker opened",
				slog.String("service", service))
		}
		return nil, fmt.Errorf("%s: %w", service, err)
	}

	if cb.recordSuccess() {
		r.logger.Info("circuit breaker closed, service recovered",
			slog.String("service", service))
	}

	return result, nil
}

// Status returns a snapshot of every breaker the registry has created.
func (r *Registry) Status() map[string]BreakerStatus {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	status := make(map[string]BreakerStatus, len(r.breakers))
	for service, cb := range r.breakers {
		status[service] = cb.status()
	}
	return status
}

// ResetBreaker forces a known service's breaker back to closed. It returns
// false, mutating nothing, when the service has never been dispatched to.
func (r *Registry) ResetBreaker(service string) bool {
	r.mutex.RLock()
	cb, exists := r.breakers[service]
	r.mutex.RUnlock()

	if !exists {
		return false
	}

	cb.reset()
	r.logger.Info("circuit breaker manually reset",
		slog.String("service", service))
	return true
}
