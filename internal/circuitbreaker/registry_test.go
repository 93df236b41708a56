package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshsim/gateway/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var (
		registry *circuitbreaker.Registry
		ctx      context.Context
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(3, 30*time.Second, testLogger())
		ctx = context.Background()
	})

	Describe("GetBreaker", func() {
		It("should create a new breaker for an unknown service", func() {
			cb := registry.GetBreaker("catalog")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same service", func() {
			cb1 := registry.GetBreaker("catalog")
			cb2 := registry.GetBreaker("catalog")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different services", func() {
			cb1 := registry.GetBreaker("catalog")
			cb2 := registry.GetBreaker("cart")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})
	})

	Describe("Status", func() {
		It("should be empty before any dispatch", func() {
			Expect(registry.Status()).To(BeEmpty())
		})

		It("should report state, failure count, and last failure per service", func() {
			registry.Call(ctx, "catalog", succeedingOp("ok"))
			registry.Call(ctx, "cart", failingOp(errors.New("boom")))

			status := registry.Status()
			Expect(status).To(HaveLen(2))

			Expect(status["catalog"].State).To(Equal("closed"))
			Expect(status["catalog"].FailureCount).To(Equal(0))
			Expect(status["catalog"].LastFailure).To(BeNil())

			Expect(status["cart"].State).To(Equal("closed"))
			Expect(status["cart"].FailureCount).To(Equal(1))
			Expect(status["cart"].LastFailure).NotTo(BeNil())
		})

		It("should report open breakers", func() {
			for i := 0; i < 3; i++ {
				registry.Call(ctx, "order", failingOp(errors.New("boom")))
			}

			status := registry.Status()
			Expect(status["order"].State).To(Equal("open"))
			Expect(status["order"].FailureCount).To(Equal(3))
		})

		It("should not mutate any breaker", func() {
			registry.Call(ctx, "catalog", failingOp(errors.New("boom")))

			before := registry.GetBreaker("catalog").Failures()
			registry.Status()
			registry.Status()
			Expect(registry.GetBreaker("catalog").Failures()).To(Equal(before))
		})
	})

	Describe("ResetBreaker", func() {
		It("should force an open breaker back to closed with a zeroed counter", func() {
			for i := 0; i < 3; i++ {
				registry.Call(ctx, "catalog", failingOp(errors.New("boom")))
			}
			Expect(registry.GetBreaker("catalog").State()).To(Equal(circuitbreaker.StateOpen))

			Expect(registry.ResetBreaker("catalog")).To(BeTrue())

			cb := registry.GetBreaker("catalog")
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Failures()).To(Equal(0))
			Expect(cb.LastFailure()).To(BeZero())
		})

		It("should reset a closed breaker's counter as well", func() {
			registry.Call(ctx, "catalog", failingOp(errors.New("boom")))

			Expect(registry.ResetBreaker("catalog")).To(BeTrue())
			Expect(registry.GetBreaker("catalog").Failures()).To(Equal(0))
		})

		It("should return false for an unknown service and mutate nothing", func() {
			registry.Call(ctx, "catalog", succeedingOp("ok"))

			Expect(registry.ResetBreaker("nonexistent")).To(BeFalse())
			Expect(registry.Status()).To(HaveLen(1))
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent calls for the same service safely", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					registry.Call(ctx, "catalog", succeedingOp("ok"))
				}()
			}

			wg.Wait()

			// Only one breaker exists for the service
			Expect(registry.Status()).To(HaveLen(1))
		})

		It("should count interleaved failures exactly", func() {
			const failures = 2 // below the threshold of 3

			var wg sync.WaitGroup
			wg.Add(failures)

			for i := 0; i < failures; i++ {
				go func() {
					defer wg.Done()
					registry.Call(ctx, "catalog", failingOp(errors.New("boom")))
				}()
			}

			wg.Wait()

			cb := registry.GetBreaker("catalog")
			Expect(cb.Failures()).To(Equal(failures))
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})
})
