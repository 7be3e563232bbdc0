package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistryMetrics records registry client operation latencies and
// outcomes. It implements registry.MetricsRecorder.
type RegistryMetrics struct {
	// OperationDuration observes latency per registry operation.
	OperationDuration *prometheus.HistogramVec

	// OperationErrors counts failed registry operations.
	OperationErrors *prometheus.CounterVec
}

// NewRegistryMetrics creates and registers registry metrics.
// A nil registerer uses the default prometheus registry.
func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &RegistryMetrics{
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "scour",
				Subsystem: "registry",
				Name:      "operation_duration_seconds",
				Help:      "Latency of registry operations.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"operation"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "registry",
				Name:      "operation_errors_total",
				Help:      "Failed registry operations.",
			},
			[]string{"operation"},
		),
	}
}

func (m *RegistryMetrics) record(operation string, durationSeconds float64, success bool) {
	m.OperationDuration.WithLabelValues(operation).Observe(durationSeconds)
	if !success {
		m.OperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordLookup records a point lookup.
func (m *RegistryMetrics) RecordLookup(durationSeconds float64, success bool) {
	m.record("lookup", durationSeconds, success)
}

// RecordFind records a multi-record query.
func (m *RegistryMetrics) RecordFind(durationSeconds float64, success bool) {
	m.record("find", durationSeconds, success)
}

// RecordMutation records a remove-location plus append-history mutation.
func (m *RegistryMetrics) RecordMutation(durationSeconds float64, success bool) {
	m.record("mutation", durationSeconds, success)
}
