// Package alert delivers operator alerts. Delivery is fire-and-forget:
// a failure to report is logged, never fatal, and never blocks cleaning.
package alert

import (
	"context"

	"github.com/scour-io/scour/internal/logging"
)

// Priority classifies an alert for the receiving operator tooling.
type Priority string

const (
	PriorityInfo    Priority = "info"
	PriorityWarning Priority = "warning"
	PriorityError   Priority = "error"
	PriorityFatal   Priority = "fatal"
)

// Sink receives operator alerts. run is 0 when the alert is not tied to
// a specific run.
type Sink interface {
	Report(ctx context.Context, priority Priority, message string, run int)
	Close() error
}

// LogSink writes alerts to the structured log. It is the fallback when
// no Kafka alert topic is configured.
type LogSink struct {
	log *logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Report(_ context.Context, priority Priority, message string, run int) {
	l := s.log
	if run > 0 {
		l = l.WithRun(run)
	}
	fields := map[string]any{"priority": string(priority)}
	switch priority {
	case PriorityError, PriorityFatal:
		l.Errorf(message, fields)
	case PriorityWarning:
		l.Warnf(message, fields)
	default:
		l.Infof(message, fields)
	}
}

func (s *LogSink) Close() error { return nil }
