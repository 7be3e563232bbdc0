package registry

import (
	"context"
	"testing"
)

type fakeRecorder struct {
	lookups   []bool
	finds     []bool
	mutations []bool
}

func (r *fakeRecorder) RecordLookup(_ float64, success bool)   { r.lookups = append(r.lookups, success) }
func (r *fakeRecorder) RecordFind(_ float64, success bool)     { r.finds = append(r.finds, success) }
func (r *fakeRecorder) RecordMutation(_ float64, success bool) { r.mutations = append(r.mutations, success) }

func TestInstrumentedClientRecordsOutcomes(t *testing.T) {
	mock := NewMockClient()
	mock.AddRun(Run{
		Number:    1,
		Locations: []Location{{Kind: "raw", Host: "eb01", Path: "/a"}},
	})
	rec := &fakeRecorder{}
	client := NewInstrumentedClient(mock, rec)
	ctx := context.Background()

	if _, err := client.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Run(ctx, 99); err == nil {
		t.Fatal("expected ErrRunNotFound")
	}
	if _, err := client.Find(ctx, Filter{}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := client.RecordDeletion(ctx, 1, LocationMatch{Kind: "raw", Host: "eb01"}, Deletion{}); err != nil {
		t.Fatal(err)
	}

	if len(rec.lookups) != 2 || !rec.lookups[0] || rec.lookups[1] {
		t.Errorf("lookups = %v, want [true false]", rec.lookups)
	}
	if len(rec.finds) != 1 || !rec.finds[0] {
		t.Errorf("finds = %v, want [true]", rec.finds)
	}
	if len(rec.mutations) != 1 || !rec.mutations[0] {
		t.Errorf("mutations = %v, want [true]", rec.mutations)
	}
}

func TestInstrumentedClientNilRecorder(t *testing.T) {
	client := NewInstrumentedClient(NewMockClient(), nil)
	if _, err := client.Find(context.Background(), Filter{}, 0); err != nil {
		t.Fatalf("nil recorder must pass through: %v", err)
	}
}
