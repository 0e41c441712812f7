package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics records store operation outcomes, latencies, and
// transferred byte counts.
//
// A nil *StorageMetrics is valid: all methods are no-ops. Stores therefore
// never need to guard their metric calls.
type StorageMetrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	bytesUploaded   prometheus.Counter
	bytesDownloaded prometheus.Counter
}

// NewStorageMetrics creates and registers storage metrics on the global
// registry. Returns nil (a valid no-op instance) when the registry has not
// been initialized.
func NewStorageMetrics() *StorageMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	m := &StorageMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picloud",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Store operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "picloud",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bytesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "picloud",
			Subsystem: "storage",
			Name:      "bytes_uploaded_total",
			Help:      "Bytes written through Save.",
		}),
		bytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "picloud",
			Subsystem: "storage",
			Name:      "bytes_downloaded_total",
			Help:      "Bytes read through Open.",
		}),
	}

	reg.MustRegister(m.operations, m.duration, m.bytesUploaded, m.bytesDownloaded)

	return m
}

// ObserveOperation records one completed store operation.
func (m *StorageMetrics) ObserveOperation(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddBytesUploaded accumulates bytes written by Save.
func (m *StorageMetrics) AddBytesUploaded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesUploaded.Add(float64(n))
}

// AddBytesDownloaded accumulates bytes read by Open.
func (m *StorageMetrics) AddBytesDownloaded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesDownloaded.Add(float64(n))
}
