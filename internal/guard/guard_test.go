package guard

import (
	"errors"
	"strings"
	"testing"

	"github.com/scour-io/scour/internal/registry"
)

func testRun(locs ...registry.Location) *registry.Run {
	return &registry.Run{Number: 24399, Locations: locs}
}

func TestCheckRejectsLastDurableCopy(t *testing.T) {
	g := New("array", []string{"raw"})

	// The only copy of the run's raw data lives on this host.
	run := testRun(
		registry.Location{Kind: "raw", Host: "eb01", Path: "/data/raw/24399"},
		registry.Location{Kind: "events", Host: "eb01", Path: "/data/processed/24399"},
	)

	err := g.Check(run, "raw", false)
	if err == nil {
		t.Fatal("expected violation deleting the last durable copy")
	}
	var violation *ViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected *ViolationError, got %T", err)
	}
	if violation.Live != 0 || violation.Durable != 1 || violation.Required != 2 {
		t.Errorf("violation = %+v, want live=0 durable=1 required=2", violation)
	}
	if !strings.Contains(violation.Error(), "run 24399") {
		t.Errorf("error message should name the run: %s", violation.Error())
	}
}

func TestCheckAllowsWithLiveCopy(t *testing.T) {
	g := New("array", []string{"raw"})

	// A copy on the shared tier makes any deletion safe, even of a
	// durable kind.
	run := testRun(
		registry.Location{Kind: "raw", Host: "eb01", Path: "/data/raw/24399"},
		registry.Location{Kind: "raw", Host: "array", Path: "/array/raw/24399"},
	)

	if err := g.Check(run, "raw", false); err != nil {
		t.Fatalf("expected deletion allowed with a live copy, got %v", err)
	}
}

func TestCheckAllowsSecondDurableCopy(t *testing.T) {
	g := New("array", []string{"raw"})

	run := testRun(
		registry.Location{Kind: "raw", Host: "eb01", Path: "/data/raw/24399"},
		registry.Location{Kind: "raw", Host: "eb02", Path: "/data/raw/24399"},
	)

	// Two durable copies: removing one still leaves one.
	if err := g.Check(run, "raw", false); err != nil {
		t.Fatalf("expected deletion allowed with two durable copies, got %v", err)
	}
}

func TestCheckNonDurableKind(t *testing.T) {
	g := New("array", []string{"raw"})

	run := testRun(
		registry.Location{Kind: "raw", Host: "eb02", Path: "/data/raw/24399"},
		registry.Location{Kind: "events", Host: "eb01", Path: "/data/processed/24399"},
	)

	// Deleting a replaceable kind only needs one durable copy anywhere.
	if err := g.Check(run, "events", false); err != nil {
		t.Fatalf("expected deletion allowed, got %v", err)
	}

	// With no durable copy at all, even a replaceable kind is kept:
	// there is nothing left to regenerate it from.
	bare := testRun(
		registry.Location{Kind: "events", Host: "eb01", Path: "/data/processed/24399"},
	)
	if err := g.Check(bare, "events", false); err == nil {
		t.Fatal("expected violation with no durable copy anywhere")
	}
}

func TestCheckOverride(t *testing.T) {
	g := New("array", []string{"raw"})

	run := testRun(
		registry.Location{Kind: "raw", Host: "eb01", Path: "/data/raw/24399"},
	)

	if err := g.Check(run, "raw", true); err != nil {
		t.Fatalf("override must bypass the check, got %v", err)
	}
}

func TestIsDurable(t *testing.T) {
	g := New("array", []string{"raw", "calib"})

	if !g.IsDurable("raw") || !g.IsDurable("calib") {
		t.Error("configured kinds must be durable")
	}
	if g.IsDurable("events") {
		t.Error("events is not a configured durable kind")
	}
}
