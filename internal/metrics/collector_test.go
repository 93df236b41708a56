package metrics_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshsim/gateway/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("EventChannel", func() {
		It("should return a write-only channel", func() {
			ch := collector.EventChannel()
			Expect(ch).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventDispatchReceived", func() {
			collector.Start(ctx)

			event := metrics.MetricEvent{
				Type:      metrics.EventDispatchReceived,
				Timestamp: time.Now(),
				Service:   "catalog",
			}

			collector.EventChannel() <- event
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			Expect(snap.Services["catalog"].Requests).To(Equal(int64(1)))
		})

		It("should process EventCircuitRejected", func() {
			collector.Start(ctx)

			event := metrics.MetricEvent{
				Type:      metrics.EventCircuitRejected,
				Timestamp: time.Now(),
				Service:   "order",
			}

			collector.EventChannel() <- event
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			Expect(snap.Services["order"].CircuitRejections).To(Equal(int64(1)))
		})

		It("should process EventResponseCompleted", func() {
			collector.Start(ctx)

			event := metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Service:    "catalog",
				Duration:   100 * time.Millisecond,
				StatusCode: 200,
			}

			collector.EventChannel() <- event
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			service := snap.Services["catalog"]
			Expect(service.AvgResponse).To(Equal(100 * time.Millisecond))
			Expect(service.StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should process EventHealthChanged", func() {
			collector.Start(ctx)

			event := metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Service:   "cart",
				Healthy:   true,
			}

			collector.EventChannel() <- event
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			Expect(snap.Services["cart"].Healthy).To(BeTrue())
		})

		It("should process multiple events in sequence", func() {
			collector.Start(ctx)

			events := []metrics.MetricEvent{
				{
					Type:      metrics.EventDispatchReceived,
					Timestamp: time.Now(),
					Service:   "catalog",
				},
				{
					Type:      metrics.EventCircuitRejected,
					Timestamp: time.Now(),
					Service:   "catalog",
				},
				{
					Type:       metrics.EventResponseCompleted,
					Timestamp:  time.Now(),
					Service:    "catalog",
					Duration:   50 * time.Millisecond,
					StatusCode: 201,
				},
			}

			for _, event := range events {
				collector.EventChannel() <- event
			}
			time.Sleep(20 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			service := snap.Services["catalog"]
			Expect(service.Requests).To(Equal(int64(1)))
			Expect(service.CircuitRejections).To(Equal(int64(1)))
			Expect(service.AvgResponse).To(Equal(50 * time.Millisecond))
			Expect(service.StatusCodes[201]).To(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			collector.Start(ctx)

			// Send events before cancellation
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type:      metrics.EventDispatchReceived,
					Timestamp: time.Now(),
					Service:   "catalog",
				}
			}

			cancel()
			time.Sleep(20 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			// All events should be processed via drain
			Expect(snap.Services["catalog"].Requests).To(Equal(int64(5)))
		})
	})

	Describe("Handler", func() {
		It("should return a valid http.HandlerFunc", func() {
			handler := collector.Handler("mesh-gateway")
			Expect(handler).NotTo(BeNil())
		})
	})

	Describe("Snapshot", func() {
		It("should return current metrics snapshot", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventDispatchReceived,
				Timestamp: time.Now(),
				Service:   "catalog",
			}
			time.Sleep(10 * time.Millisecond)

			snap := collector.Snapshot("mesh-gateway")
			Expect(snap.Gateway).To(Equal("mesh-gateway"))
			Expect(snap.TotalRequests).To(Equal(int64(1)))
		})
	})
})
