package metrics_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/meshsim/gateway/internal/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementRequests", func() {
		It("should increment request count for a service", func() {
			m.IncrementRequests("catalog")
			m.IncrementRequests("catalog")

			snap := m.Snapshot("mesh-gateway")
			Expect(snap.TotalRequests).To(Equal(int64(2)))
			Expect(snap.Services["catalog"].Requests).To(Equal(int64(2)))
		})

		It("should track multiple services separately", func() {
			m.IncrementRequests("catalog")
			m.IncrementRequests("cart")
			m.IncrementRequests("catalog")

			snap := m.Snapshot("mesh-gateway")
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.Services["catalog"].Requests).To(Equal(int64(2)))
			Expect(snap.Services["cart"].Requests).To(Equal(int64(1)))
		})
	})

	Describe("RecordRejection", func() {
		It("should count circuit breaker rejections", func() {
			m.RecordRejection("order")
			m.RecordRejection("order")
			m.RecordRejection("cart")

			snap := m.Snapshot("mesh-gateway")
			Expect(snap.Services["order"].CircuitRejections).To(Equal(int64(2)))
			Expect(snap.Services["cart"].CircuitRejections).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("catalog", 100*time.Millisecond, 200)
			m.RecordResponse("catalog", 200*time.Millisecond, 200)

			snap := m.Snapshot("mesh-gateway")
			service := snap.Services["catalog"]

			Expect(service.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(service.StatusCodes[200]).To(Equal(int64(2)))
		})

		It("should track different status codes", func() {
			m.RecordResponse("catalog", 100*time.Millisecond, 200)
			m.RecordResponse("catalog", 150*time.Millisecond, 404)
			m.RecordResponse("catalog", 200*time.Millisecond, 503)

			snap := m.Snapshot("mesh-gateway")
			service := snap.Services["catalog"]

			Expect(service.StatusCodes[200]).To(Equal(int64(1)))
			Expect(service.StatusCodes[404]).To(Equal(int64(1)))
			Expect(service.StatusCodes[503]).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("catalog", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot("mesh-gateway")
			service := snap.Services["catalog"]

			Expect(service.P50Response).To(BeNumerically("~", 50*time.Millisecond, 2*time.Millisecond))
			Expect(service.P95Response).To(BeNumerically("~", 95*time.Millisecond, 2*time.Millisecond))
			Expect(service.P99Response).To(BeNumerically("~", 99*time.Millisecond, 2*time.Millisecond))
		})

		It("should cap stored response times at 1000 samples", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse("catalog", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot("mesh-gateway")
			Expect(snap.Services["catalog"].AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("UpdateHealthStatus", func() {
		It("should track service health", func() {
			m.UpdateHealthStatus("catalog", true)
			m.UpdateHealthStatus("order", false)

			snap := m.Snapshot("mesh-gateway")
			Expect(snap.Services["catalog"].Healthy).To(BeTrue())
			Expect(snap.Services["order"].Healthy).To(BeFalse())
		})
	})

	Describe("Snapshot", func() {
		It("should carry the gateway label and uptime", func() {
			snap := m.Snapshot("mesh-gateway")
			Expect(snap.Gateway).To(Equal("mesh-gateway"))
			Expect(snap.Uptime).To(BeNumerically(">=", 0))
		})
	})
})
