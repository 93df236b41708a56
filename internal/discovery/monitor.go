package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/mesh"
)

// Monitor probes service health operations through the mesh dispatcher on a
// fixed interval and records the results in the discovery registry. Probes
// go through the full resilience layer, so a tripped breaker marks the
// service down without touching the backend.
type Monitor struct {
	dispatcher *mesh.Dispatcher
	registry   *Registry
	interval   time.Duration
	logger     *slog.Logger
	onChange   func(service string, healthy bool)
}

// NewMonitor creates a monitor. onChange, if non-nil, fires on every health
// transition (used to emit metric events).
func NewMonitor(
	dispatcher *mesh.Dispatcher,
	registry *Registry,
	interval time.Duration,
	logger *slog.Logger,
	onChange func(service string, healthy bool),
) *Monitor {
	return &Monitor{
		dispatcher: dispatcher,
		registry:   registry,
		interval:   interval,
		logger:     logger,
		onChange:   onChange,
	}
}

// Watch checks one service until the context is cancelled. It is meant to
// run as a goroutine per service.
func (m *Monitor) Watch(ctx context.Context, service string, health backend.Operation) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped",
				slog.String("service", service))
			return

		case <-ticker.C:
			status := m.check(ctx, service, health)
			changed := m.registry.SetStatus(service, status)

			if changed {
				if status == StatusHealthy {
					m.logger.Info("service is back up",
						slog.String("service", service))
				} else {
					m.logger.Warn("service is down",
						slog.String("service", service),
						slog.String("status", string(status)))
				}
				if m.onChange != nil {
					m.onChange(service, status == StatusHealthy)
				}
			}
		}
	}
}

func (m *Monitor) check(ctx context.Context, service string, health backend.Operation) Status {
	result, err := m.dispatcher.Forward(ctx, service, health)
	if err != nil {
		return StatusDown
	}

	if hs, ok := result.(backend.HealthStatus); ok && hs.Status == backend.StatusHealthy {
		return StatusHealthy
	}
	return StatusUnhealthy
}
