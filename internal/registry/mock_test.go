package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockRecordDeletion(t *testing.T) {
	m := NewMockClient()
	m.AddRun(Run{
		Number: 5,
		Status: StatusDone,
		Locations: []Location{
			{Kind: "raw", Host: "eb01", Path: "/a"},
			{Kind: "events", Host: "eb01", Path: "/b"},
		},
	})

	d := Deletion{Kind: "events", Host: "eb01", At: time.Now(), Actor: "test", Reason: "test"}
	removed, err := m.RecordDeletion(context.Background(), 5, LocationMatch{Kind: "events", Host: "eb01"}, d)
	if err != nil || !removed {
		t.Fatalf("RecordDeletion = %v, %v", removed, err)
	}

	run, _ := m.GetRun(5)
	if len(run.Locations) != 1 || run.Locations[0].Kind != "raw" {
		t.Errorf("locations after deletion = %+v", run.Locations)
	}
	if len(run.Deletions) != 1 || run.Deletions[0].Actor != "test" {
		t.Errorf("deletion history = %+v", run.Deletions)
	}
	if m.Mutations != 1 {
		t.Errorf("mutations = %d, want 1", m.Mutations)
	}

	// Second removal of the same entry is a no-op, not an error.
	removed, err = m.RecordDeletion(context.Background(), 5, LocationMatch{Kind: "events", Host: "eb01"}, d)
	if err != nil {
		t.Fatalf("repeat RecordDeletion: %v", err)
	}
	if removed {
		t.Error("repeat RecordDeletion must report nothing removed")
	}
	if m.Mutations != 1 {
		t.Errorf("mutations after repeat = %d, want 1", m.Mutations)
	}
}

func TestMockUnavailable(t *testing.T) {
	m := NewMockClient()
	m.Unavailable = true

	if _, err := m.Run(context.Background(), 1); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Run error = %v, want ErrUnavailable", err)
	}
	if _, err := m.Find(context.Background(), Filter{}, 0); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Find error = %v, want ErrUnavailable", err)
	}
	if err := m.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping error = %v, want ErrUnavailable", err)
	}
}

func TestMockFindOrderAndLimit(t *testing.T) {
	m := NewMockClient()
	for _, n := range []int{30, 10, 20} {
		m.AddRun(Run{Number: n, Status: StatusDone})
	}

	runs, err := m.Find(context.Background(), Filter{Status: StatusDone}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].Number != 10 || runs[2].Number != 30 {
		t.Errorf("Find order = %+v, want ascending run numbers", runs)
	}

	runs, _ = m.Find(context.Background(), Filter{NumberAfter: 10}, 1)
	if len(runs) != 1 || runs[0].Number != 20 {
		t.Errorf("Find with cursor and limit = %+v, want [20]", runs)
	}
}

func TestMockClosed(t *testing.T) {
	m := NewMockClient()
	_ = m.Close()
	if _, err := m.Run(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after close = %v, want ErrClosed", err)
	}
}
