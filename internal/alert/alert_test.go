package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/scour-io/scour/internal/logging"
)

func TestLogSinkSeverityMapping(t *testing.T) {
	tests := []struct {
		priority Priority
		level    string
	}{
		{PriorityInfo, "info"},
		{PriorityWarning, "warn"},
		{PriorityError, "error"},
		{PriorityFatal, "error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			var buf bytes.Buffer
			log := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON, Output: &buf})
			sink := NewLogSink(log)

			sink.Report(context.Background(), tt.priority, "disk anomaly", 42)

			var entry logging.Entry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatal(err)
			}
			if entry.Level != tt.level {
				t.Errorf("level = %s, want %s", entry.Level, tt.level)
			}
			if entry.Run != 42 {
				t.Errorf("run = %d, want 42", entry.Run)
			}
			if entry.Fields["priority"] != string(tt.priority) {
				t.Errorf("fields = %+v", entry.Fields)
			}
		})
	}
}

func TestLogSinkWithoutRun(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON, Output: &buf})
	sink := NewLogSink(log)

	sink.Report(context.Background(), PriorityInfo, "cycle complete", 0)

	var entry logging.Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Run != 0 {
		t.Errorf("run = %d, want untagged", entry.Run)
	}
}

func TestKafkaSinkConfigValidation(t *testing.T) {
	log := logging.DefaultLogger()

	_, err := NewKafkaSink(KafkaConfig{Topic: "scour-alerts"}, log)
	if err == nil || !strings.Contains(err.Error(), "broker") {
		t.Errorf("missing brokers = %v, want broker error", err)
	}

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"kafka1:9092"}}, log)
	if err == nil || !strings.Contains(err.Error(), "topic") {
		t.Errorf("missing topic = %v, want topic error", err)
	}
}
