package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf, Host: "eb01"})

	l.Infof("deletion done", map[string]any{"kind": "events"})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry.Level != "info" || entry.Message != "deletion done" || entry.Host != "eb01" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["kind"] != "events" {
		t.Errorf("fields = %+v", entry.Fields)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("emitted %d entries, want 2", lines)
	}
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	l.WithRun(24399).Info("tagged")

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Run != 24399 {
		t.Errorf("run = %d, want 24399", entry.Run)
	}
}

func TestWithFieldsInherited(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	child := l.With(map[string]any{"mode": "shared-tier"})
	child.Infof("pass", map[string]any{"count": 3})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Fields["mode"] != "shared-tier" {
		t.Errorf("inherited field missing: %+v", entry.Fields)
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("call field missing: %+v", entry.Fields)
	}

	// The parent is unchanged.
	buf.Reset()
	l.Info("plain")
	var parent Entry
	if err := json.Unmarshal(buf.Bytes(), &parent); err != nil {
		t.Fatal(err)
	}
	if len(parent.Fields) != 0 {
		t.Errorf("parent fields = %+v, want none", parent.Fields)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf, Host: "eb01"})

	l.WithRun(7).Infof("removed", map[string]any{"path": "/data/x"})

	out := buf.String()
	for _, want := range []string{"[info]", "removed", "host=eb01", "run=7", "path=/data/x"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
