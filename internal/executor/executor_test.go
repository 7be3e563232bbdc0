package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/scour-io/scour/internal/guard"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/registry"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
}

func newTestExecutor(t *testing.T, mock *registry.MockClient, confirm Confirmer) *Executor {
	t.Helper()
	log := testLogger()
	return New(Config{
		Registry: mock,
		Guard:    guard.New("array", []string{"raw"}),
		Log:      log,
		Pool:     NewPool(2, 0, log, nil, nil),
		Actor:    "scourd@eb01/test",
		Confirm:  confirm,
	})
}

// writeArtifact creates a run folder with one payload file and returns
// its path.
func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "payload.dat"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDeleteRemovesPathAndRegistryEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "00000042-events-abc")

	mock := registry.NewMockClient()
	run := registry.Run{
		Number: 42,
		Status: registry.StatusDone,
		Locations: []registry.Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/42"},
			{Kind: "events", Host: "eb01", Path: path},
		},
	}
	mock.AddRun(run)

	e := newTestExecutor(t, mock, nil)
	result, err := e.Delete(context.Background(), &run, run.Locations[1], Options{
		Reason: "test cleanup", Mode: "high-level",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultDeleted {
		t.Errorf("result = %s, want deleted", result)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("artifact folder must be removed")
	}

	stored, _ := mock.GetRun(42)
	if len(stored.Locations) != 1 || stored.Locations[0].Host != "array" {
		t.Errorf("locations = %+v, want only the shared copy", stored.Locations)
	}
	if len(stored.Deletions) != 1 {
		t.Fatalf("deletions = %+v, want one audit entry", stored.Deletions)
	}
	d := stored.Deletions[0]
	if d.Actor != "scourd@eb01/test" || d.Reason != "test cleanup" || d.Path != path {
		t.Errorf("audit entry = %+v", d)
	}
}

func TestDeleteRemovesTempSibling(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "00000042-events-abc")
	temp := writeArtifact(t, dir, "00000042-events-abc-temp")

	mock := registry.NewMockClient()
	run := registry.Run{
		Number: 42,
		Locations: []registry.Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/42"},
			{Kind: "events", Host: "eb01", Path: path},
		},
	}
	mock.AddRun(run)

	e := newTestExecutor(t, mock, nil)
	if _, err := e.Delete(context.Background(), &run, run.Locations[1], Options{Mode: "high-level"}); err != nil {
		t.Fatal(err)
	}
	if _, statErr := os.Stat(temp); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("the -temp shadow folder must be removed alongside the primary")
	}
}

func TestDeleteAlreadyAbsent(t *testing.T) {
	mock := registry.NewMockClient()
	run := registry.Run{
		Number: 7,
		Locations: []registry.Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/7"},
			{Kind: "events", Host: "eb01", Path: filepath.Join(t.TempDir(), "gone")},
		},
	}
	mock.AddRun(run)

	e := newTestExecutor(t, mock, nil)
	result, err := e.Delete(context.Background(), &run, run.Locations[1], Options{Mode: "reconcile"})
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultAlreadyAbsent {
		t.Errorf("result = %s, want already-absent", result)
	}

	// The registry entry is still cleared: the deletion converged.
	stored, _ := mock.GetRun(7)
	if len(stored.Locations) != 1 {
		t.Errorf("locations = %+v, want the stale entry cleared", stored.Locations)
	}
}

func TestDeleteDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "00000042-events-abc")

	mock := registry.NewMockClient()
	run := registry.Run{
		Number: 42,
		Locations: []registry.Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/42"},
			{Kind: "events", Host: "eb01", Path: path},
		},
	}
	mock.AddRun(run)

	e := newTestExecutor(t, mock, nil)
	result, err := e.Delete(context.Background(), &run, run.Locations[1], Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultDryRun {
		t.Errorf("result = %s, want dry-run", result)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("dry-run must not touch the filesystem")
	}
	if mock.Mutations != 0 {
		t.Errorf("mutations = %d, dry-run must not touch the registry", mock.Mutations)
	}
}

func TestDeleteGuardViolation(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "00000042-raw-abc")

	mock := registry.NewMockClient()
	run := registry.Run{
		Number:    42,
		Locations: []registry.Location{{Kind: "raw", Host: "eb01", Path: path}},
	}
	mock.AddRun(run)
	e := newTestExecutor(t, mock, nil)

	_, err := e.Delete(context.Background(), &run, run.Locations[0], Options{})
	var violation *guard.ViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected *guard.ViolationError, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("a rejected deletion must not touch the filesystem")
	}

	// The same violation in dry-run is a logged audit finding.
	result, err := e.Delete(context.Background(), &run, run.Locations[0], Options{DryRun: true})
	if err != nil {
		t.Fatalf("dry-run must not fail on a violation: %v", err)
	}
	if result != ResultDryRun {
		t.Errorf("result = %s, want dry-run", result)
	}
}

type denyAll struct{}

func (denyAll) Confirm(string) bool { return false }

func TestDeleteDeclined(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "00000042-events-abc")

	mock := registry.NewMockClient()
	run := registry.Run{
		Number: 42,
		Locations: []registry.Location{
			{Kind: "raw", Host: "array", Path: "/array/raw/42"},
			{Kind: "events", Host: "eb01", Path: path},
		},
	}
	mock.AddRun(run)

	e := newTestExecutor(t, mock, denyAll{})
	result, err := e.Delete(context.Background(), &run, run.Locations[1], Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultDeclined {
		t.Errorf("result = %s, want declined", result)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("a declined deletion must not touch the filesystem")
	}
	if mock.Mutations != 0 {
		t.Error("a declined deletion must not touch the registry")
	}
}

func TestInconsistencyErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := &InconsistencyError{Run: 3, Path: "/data/x", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("InconsistencyError must unwrap to its cause")
	}
}
