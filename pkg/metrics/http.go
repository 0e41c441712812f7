package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latencies for the API adapter.
//
// A nil *HTTPMetrics is valid: all methods are no-ops.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics on the global registry.
// Returns nil (a valid no-op instance) when the registry has not been
// initialized.
func NewHTTPMetrics() *HTTPMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picloud",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "picloud",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(m.requests, m.duration)

	return m
}

// ObserveRequest records one completed HTTP request.
func (m *HTTPMetrics) ObserveRequest(route, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, code).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}
