package discovery_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshsim/gateway/internal/backend"
	"github.com/meshsim/gateway/internal/circuitbreaker"
	"github.com/meshsim/gateway/internal/discovery"
	"github.com/meshsim/gateway/internal/mesh"
	"github.com/meshsim/gateway/internal/retry"
)

func TestDiscovery(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Discovery Suite")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Suppress logs in tests
	}))
}

var _ = Describe("Registry", func() {
	var registry *discovery.Registry

	BeforeEach(func() {
		registry = discovery.NewRegistry()
		registry.Register(discovery.ServiceInfo{
			Name:        "catalog",
			Path:        "/catalog",
			Replicas:    3,
			Description: "Product catalog",
		})
		registry.Register(discovery.ServiceInfo{
			Name:        "cart",
			Path:        "/cart",
			Replicas:    2,
			Description: "Shopping cart",
		})
	})

	Describe("Register", func() {
		It("should default new services to healthy", func() {
			services := registry.Snapshot()
			Expect(services).To(HaveLen(2))
			for _, info := range services {
				Expect(info.Status).To(Equal(discovery.StatusHealthy))
			}
		})

		It("should preserve an explicit status", func() {
			registry.Register(discovery.ServiceInfo{
				Name:   "order",
				Path:   "/order",
				Status: discovery.StatusDown,
			})

			services := registry.Snapshot()
			Expect(services).To(HaveLen(3))
			Expect(services[2].Name).To(Equal("order"))
			Expect(services[2].Status).To(Equal(discovery.StatusDown))
		})
	})

	Describe("SetStatus", func() {
		It("should report a transition", func() {
			changed := registry.SetStatus("catalog", discovery.StatusDown)
			Expect(changed).To(BeTrue())
		})

		It("should report no change when status is stable", func() {
			changed := registry.SetStatus("catalog", discovery.StatusHealthy)
			Expect(changed).To(BeFalse())
		})

		It("should stamp the last health check time", func() {
			registry.SetStatus("catalog", discovery.StatusUnhealthy)

			services := registry.Snapshot()
			Expect(services[1].Name).To(Equal("catalog"))
			Expect(services[1].LastHealthCheck).To(BeTemporally("~", time.Now(), time.Second))
		})

		It("should ignore unknown services", func() {
			changed := registry.SetStatus("payments", discovery.StatusDown)
			Expect(changed).To(BeFalse())
			Expect(registry.Snapshot()).To(HaveLen(2))
		})
	})

	Describe("Snapshot", func() {
		It("should return services sorted by name", func() {
			services := registry.Snapshot()
			Expect(services[0].Name).To(Equal("cart"))
			Expect(services[1].Name).To(Equal("catalog"))
		})
	})

	Describe("Endpoints", func() {
		It("should list paths of healthy services only", func() {
			registry.SetStatus("cart", discovery.StatusDown)

			Expect(registry.Endpoints()).To(Equal([]string{"/catalog"}))
		})

		It("should list all paths when everything is healthy", func() {
			Expect(registry.Endpoints()).To(Equal([]string{"/cart", "/catalog"}))
		})
	})
})

var _ = Describe("Monitor", func() {
	var (
		registry   *discovery.Registry
		dispatcher *mesh.Dispatcher
		ctx        context.Context
		cancel     context.CancelFunc
	)

	BeforeEach(func() {
		log := testLogger()
		breakers := circuitbreaker.NewRegistry(3, 30*time.Second, log)
		policy := retry.NewPolicy(1, time.Millisecond, log)
		dispatcher = mesh.NewDispatcher(breakers, policy, log)

		registry = discovery.NewRegistry()
		registry.Register(discovery.ServiceInfo{Name: "catalog", Path: "/catalog"})

		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	healthyOp := func(ctx context.Context) (any, error) {
		return backend.HealthStatus{
			Service:   "catalog-service",
			Status:    backend.StatusHealthy,
			Timestamp: time.Now().Format(time.RFC3339),
		}, nil
	}

	unhealthyOp := func(ctx context.Context) (any, error) {
		return backend.HealthStatus{
			Service:   "catalog-service",
			Status:    backend.StatusUnhealthy,
			Timestamp: time.Now().Format(time.RFC3339),
			Message:   "high load detected",
		}, nil
	}

	failingOp := func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused")
	}

	It("should keep a healthy service marked healthy", func() {
		monitor := discovery.NewMonitor(dispatcher, registry, 5*time.Millisecond, testLogger(), nil)
		go monitor.Watch(ctx, "catalog", healthyOp)

		Consistently(func() discovery.Status {
			return registry.Snapshot()[0].Status
		}, 50*time.Millisecond, 10*time.Millisecond).Should(Equal(discovery.StatusHealthy))
	})

	It("should mark a degraded service unhealthy", func() {
		monitor := discovery.NewMonitor(dispatcher, registry, 5*time.Millisecond, testLogger(), nil)
		go monitor.Watch(ctx, "catalog", unhealthyOp)

		Eventually(func() discovery.Status {
			return registry.Snapshot()[0].Status
		}, time.Second, 10*time.Millisecond).Should(Equal(discovery.StatusUnhealthy))
	})

	It("should mark an unreachable service down", func() {
		monitor := discovery.NewMonitor(dispatcher, registry, 5*time.Millisecond, testLogger(), nil)
		go monitor.Watch(ctx, "catalog", failingOp)

		Eventually(func() discovery.Status {
			return registry.Snapshot()[0].Status
		}, time.Second, 10*time.Millisecond).Should(Equal(discovery.StatusDown))
	})

	It("should fire onChange on each transition", func() {
		var (
			mutex       sync.Mutex
			transitions []bool
		)
		onChange := func(service string, healthy bool) {
			mutex.Lock()
			transitions = append(transitions, healthy)
			mutex.Unlock()
		}

		monitor := discovery.NewMonitor(dispatcher, registry, 5*time.Millisecond, testLogger(), onChange)
		go monitor.Watch(ctx, "catalog", failingOp)

		Eventually(func() int {
			mutex.Lock()
			defer mutex.Unlock()
			return len(transitions)
		}, time.Second, 10*time.Millisecond).Should(Equal(1))

		mutex.Lock()
		Expect(transitions[0]).To(BeFalse())
		mutex.Unlock()
	})

	It("should stop watching when the context is cancelled", func() {
		monitor := discovery.NewMonitor(dispatcher, registry, 5*time.Millisecond, testLogger(), nil)

		done := make(chan struct{})
		go func() {
			monitor.Watch(ctx, "catalog", healthyOp)
			close(done)
		}()

		cancel()
		Eventually(done, time.Second).Should(BeClosed())
	})
})
