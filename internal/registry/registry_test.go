package registry

import (
	"testing"
	"time"
)

func TestFilterMatches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		Number:      42,
		Status:      StatusDone,
		Transfer:    TransferDone,
		ProcessedBy: "eb02",
		Start:       base,
		ProcessedAt: base.Add(2 * time.Hour),
		Locations: []Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/42"},
			{Kind: "events", Host: "eb01", Path: "/data/processed/42"},
		},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches everything", Filter{}, true},
		{"number match", Filter{Number: 42}, true},
		{"number mismatch", Filter{Number: 43}, false},
		{"cursor excludes up to and including", Filter{NumberAfter: 42}, false},
		{"cursor passes later runs", Filter{NumberAfter: 41}, true},
		{"status match", Filter{Status: StatusDone}, true},
		{"status mismatch", Filter{Status: StatusAbandoned}, false},
		{"transfer match", Filter{Transfer: TransferDone}, true},
		{"transfer mismatch", Filter{Transfer: TransferPending}, false},
		{"location host", Filter{LocationHost: "eb01"}, true},
		{"location host absent", Filter{LocationHost: "eb03"}, false},
		{"location kind", Filter{LocationKind: "raw"}, true},
		{"host and kind must match one entry", Filter{LocationHost: "eb01", LocationKind: "raw"}, false},
		{"host and kind on same entry", Filter{LocationHost: "array", LocationKind: "raw"}, true},
		{"processed before later cutoff", Filter{ProcessedBefore: base.Add(3 * time.Hour)}, true},
		{"processed before earlier cutoff", Filter{ProcessedBefore: base}, false},
		{"started before", Filter{StartedBefore: base.Add(time.Minute)}, true},
		{"started at cutoff excluded", Filter{StartedBefore: base}, false},
		{"processed-by-not excludes producer", Filter{ProcessedByNot: "eb02"}, false},
		{"processed-by-not passes others", Filter{ProcessedByNot: "eb01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(&run); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterProcessedBeforeRequiresProcessedAt(t *testing.T) {
	run := Run{Number: 7, Status: StatusDone}
	f := Filter{ProcessedBefore: time.Now()}
	if f.Matches(&run) {
		t.Error("a run that was never processed must not match ProcessedBefore")
	}
}

func TestRunLocationHelpers(t *testing.T) {
	run := Run{
		Number: 9,
		Locations: []Location{
			{Kind: "raw", Host: "eb01", Path: "/a"},
			{Kind: "events", Host: "eb01", Path: "/b"},
			{Kind: "raw", Host: "array", Path: "/c"},
		},
	}

	if got := len(run.LocationsOn("eb01")); got != 2 {
		t.Errorf("LocationsOn(eb01) = %d entries, want 2", got)
	}
	if !run.HasLocationOn("array") || run.HasLocationOn("eb02") {
		t.Error("HasLocationOn misreported")
	}

	loc, ok := run.FindLocation("raw", "array")
	if !ok || loc.Path != "/c" {
		t.Errorf("FindLocation(raw, array) = %+v, %v", loc, ok)
	}
	if _, ok := run.FindLocation("events", "array"); ok {
		t.Error("FindLocation must miss on absent (kind, host)")
	}
}
