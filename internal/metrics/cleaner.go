package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CleanerMetrics holds metrics for cleaning passes and deletions.
type CleanerMetrics struct {
	// DeletionsTotal counts completed physical deletions by mode and kind.
	DeletionsTotal *prometheus.CounterVec

	// AlreadyAbsentTotal counts registry-only reconciliations where the
	// path was already gone from disk.
	AlreadyAbsentTotal *prometheus.CounterVec

	// BytesReclaimed counts bytes removed from disk by mode.
	BytesReclaimed *prometheus.CounterVec

	// IntegrityViolations counts deletions rejected by the copy-count guard.
	IntegrityViolations prometheus.Counter

	// PassErrors counts per-record errors isolated during a pass, by mode.
	PassErrors *prometheus.CounterVec

	// PoolDepth tracks the number of shared-tier deletions in flight.
	PoolDepth prometheus.Gauge

	// PoolTimeouts counts pooled deletions that exceeded the task timeout.
	PoolTimeouts prometheus.Counter

	// PassDuration observes wall time per cleaning pass, by mode.
	PassDuration *prometheus.HistogramVec
}

// NewCleanerMetrics creates and registers cleaner metrics.
// A nil registerer uses the default prometheus registry.
func NewCleanerMetrics(reg prometheus.Registerer) *CleanerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &CleanerMetrics{
		DeletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "deletions_total",
				Help:      "Completed physical deletions, by cleaning mode and data kind.",
			},
			[]string{"mode", "kind"},
		),
		AlreadyAbsentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "already_absent_total",
				Help:      "Registry entries cleared whose path was already absent on disk.",
			},
			[]string{"mode"},
		),
		BytesReclaimed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "bytes_reclaimed_total",
				Help:      "Bytes removed from disk, by cleaning mode.",
			},
			[]string{"mode"},
		),
		IntegrityViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "integrity_violations_total",
				Help:      "Deletions rejected because they would breach the minimum-copy invariant.",
			},
		),
		PassErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "pass_errors_total",
				Help:      "Per-record errors isolated during a cleaning pass, by mode.",
			},
			[]string{"mode"},
		),
		PoolDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "pool_depth",
				Help:      "Shared-tier deletions currently in flight in the worker pool.",
			},
		),
		PoolTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "pool_timeouts_total",
				Help:      "Pooled deletions that exceeded the task timeout and were reported as stuck.",
			},
		),
		PassDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "scour",
				Subsystem: "cleaner",
				Name:      "pass_duration_seconds",
				Help:      "Wall time per cleaning pass, by mode.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"mode"},
		),
	}
}
