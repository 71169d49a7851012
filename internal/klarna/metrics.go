package klarna

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics groups Prometheus collectors for outbound provider calls.
type ClientMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
}

// NewClientMetrics registers and returns outbound call collectors. A nil
// registerer falls back to the default registry; collectors already
// registered there are reused.
func NewClientMetrics(namespace string, reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total number of outbound requests to the payment provider.",
	}, []string{"method", "host", "status"})
	if existing, ok := registerOrReuse(reg, total).(*prometheus.CounterVec); ok {
		total = existing
	}
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_ms",
		Help:      "Outbound provider request latency distribution in milliseconds.",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "host"})
	if existing, ok := registerOrReuse(reg, dur).(*prometheus.HistogramVec); ok {
		dur = existing
	}
	return &ClientMetrics{ReqTotal: total, ReqDur: dur}
}

// Observe records one completed (or failed, status 0) outbound call.
func (m *ClientMetrics) Observe(method, host string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReqTotal.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	m.ReqDur.WithLabelValues(method, host).Observe(float64(elapsed) / float64(time.Millisecond))
}

func registerOrReuse(reg prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return collector
}
