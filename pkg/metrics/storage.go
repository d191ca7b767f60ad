package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics records storage adapter latency, failures and the active mode.
type StorageMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
	degraded prometheus.Gauge
}

// NewStorageMetrics registers the storage metrics on the provided registerer.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	if reg == nil {
		return &StorageMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storage_op_duration_seconds",
		Help:    "Duration of storage adapter operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_op_failures",
		Help: "Storage adapter operations that failed, by result kind.",
	}, []string{"collection", "op", "kind"})
	degraded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storage_degraded",
		Help: "1 when the adapter runs on the local fallback store.",
	})
	reg.MustRegister(duration, failure, degraded)
	return &StorageMetrics{
		duration: duration,
		failure:  failure,
		degraded: degraded,
	}
}

// ObserveDuration records how long an operation took.
func (s *StorageMetrics) ObserveDuration(collection, op string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(collection), normalizeLabel(op)).Observe(duration.Seconds())
}

// IncFailure counts a failed operation.
func (s *StorageMetrics) IncFailure(collection, op, kind string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(collection), normalizeLabel(op), normalizeLabel(kind)).Inc()
}

// SetDegraded flags the active mode.
func (s *StorageMetrics) SetDegraded(degraded bool) {
	if s == nil || s.degraded == nil {
		return
	}
	if degraded {
		s.degraded.Set(1)
		return
	}
	s.degraded.Set(0)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
