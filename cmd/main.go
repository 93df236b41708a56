package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meshsim/gateway/config"
	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/circuitbreaker"
	"github.com/meshsim/gateway/internal/discovery"
	"github.com/meshsim/gateway/internal/handler"
	"github.com/meshsim/gateway/internal/httpserver"
	"github.com/meshsim/gateway/internal/mesh"
	"github.com/meshsim/gateway/internal/metrics"
	"github.com/meshsim/gateway/internal/retry"
	"github.com/meshsim/gateway/pkg/logger"
)

const gatewayName = "mesh-gateway"

// Simulated backend latency per operation, standing in for real network
// round trips.
const (
	backendMinDelay = 50 * time.Millisecond
	backendMaxDelay = 300 * time.Millisecond
)

// durations holds the parsed forms of every duration configured as a string.
type durations struct {
	openTimeout      time.Duration
	baseDelay        time.Duration
	healthInterval   time.Duration
	balancerMinDelay time.Duration
	balancerMaxDelay time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := parseDurations(cfg)
	if err != nil {
		log.Error("invalid duration in config", slog.Any("err", err))
		os.Exit(1)
	}

	breakers := circuitbreaker.NewRegistry(cfg.Mesh.FailureThreshold, d.openTimeout, log)
	policy := retry.NewPolicy(cfg.Mesh.MaxAttempts, d.baseDelay, log)
	dispatcher := mesh.NewDispatcher(breakers, policy, log)

	inject := backend.NewInjector(backendMinDelay, backendMaxDelay, rand.Uint64())
	catalog := backend.NewCatalog(inject)
	cart := backend.NewCart(inject)
	orders := backend.NewOrders(inject)

	collector := metrics.NewCollector(1000, log)
	collector.Start(ctx)

	services := initializeServices(cfg, log)

	monitor := discovery.NewMonitor(dispatcher, services, d.healthInterval, log,
		func(service string, healthy bool) {
			select {
			case collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Service:   service,
				Healthy:   healthy,
			}:
			default:
			}
		})

	healthOps := map[string]backend.Operation{
		"catalog": catalog.HealthCheck,
		"cart":    cart.HealthCheck,
		"order":   orders.HealthCheck,
	}
	for _, svc := range cfg.Services {
		op, ok := healthOps[svc.Name]
		if !ok {
			log.Warn("no health operation for configured service",
				slog.String("service", svc.Name))
			continue
		}
		go monitor.Watch(ctx, svc.Name, op)
	}

	gw := handler.NewGateway(log, dispatcher, catalog, cart, orders, services, collector)
	picker := handler.NewReplicaPicker(d.balancerMinDelay, d.balancerMaxDelay, cfg.Balancing.Replicas)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(gw, collector, picker))
	if err != nil {
		log.Error("failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("mesh gateway starting",
		slog.String("address", cfg.Server.Address),
		slog.Int("failure_threshold", cfg.Mesh.FailureThreshold),
		slog.Duration("open_timeout", d.openTimeout),
		slog.Int("max_attempts", cfg.Mesh.MaxAttempts))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("error starting gateway", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func parseDurations(cfg *config.Config) (*durations, error) {
	openTimeout, err := time.ParseDuration(cfg.Mesh.OpenTimeout)
	if err != nil {
		return nil, err
	}

	baseDelay, err := time.ParseDuration(cfg.Mesh.BaseDelay)
	if err != nil {
		return nil, err
	}

	healthInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, err
	}

	minDelay, err := time.ParseDuration(cfg.Balancing.MinDelay)
	if err != nil {
		return nil, err
	}

	maxDelay, err := time.ParseDuration(cfg.Balancing.MaxDelay)
	if err != nil {
		return nil, err
	}

	return &durations{
		openTimeout:      openTimeout,
		baseDelay:        baseDelay,
		healthInterval:   healthInterval,
		balancerMinDelay: minDelay,
		balancerMaxDelay: maxDelay,
	}, nil
}

func initializeServices(cfg *config.Config, log *slog.Logger) *discovery.Registry {
	services := discovery.NewRegistry()

	for _, svc := range cfg.Services {
		services.Register(discovery.ServiceInfo{
			Name:        svc.Name,
			Path:        svc.Path,
			Replicas:    svc.Replicas,
			Description: svc.Description,
		})
		log.Info("registered service",
			slog.String("service", svc.Name),
			slog.String("path", svc.Path))
	}

	return services
}
