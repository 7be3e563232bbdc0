package registry

import (
	"context"
	"sort"
	"sync"
)

// MockClient implements Client in memory for testing.
// It is exported so that tests in other packages can use it.
type MockClient struct {
	mu     sync.RWMutex
	runs   map[int]Run
	closed bool

	// Mutations counts RecordDeletion calls that actually changed a record.
	Mutations int

	// Unavailable makes every operation fail with ErrUnavailable.
	Unavailable bool
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{runs: make(map[int]Run)}
}

// AddRun stores or replaces a run record. Test setup helper.
func (m *MockClient) AddRun(r Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.Number] = cloneRun(r)
}

// GetRun returns a copy of the stored record for assertions.
func (m *MockClient) GetRun(number int) (Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[number]
	if !ok {
		return Run{}, false
	}
	return cloneRun(r), true
}

func (m *MockClient) Run(_ context.Context, number int) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.stateErr(); err != nil {
		return Run{}, err
	}
	r, ok := m.runs[number]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return cloneRun(r), nil
}

func (m *MockClient) Find(_ context.Context, f Filter, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.stateErr(); err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(m.runs))
	for n := range m.runs {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var out []Run
	for _, n := range numbers {
		r := m.runs[n]
		if !f.Matches(&r) {
			continue
		}
		out = append(out, cloneRun(r))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockClient) RecordDeletion(_ context.Context, number int, match LocationMatch, d Deletion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.stateErr(); err != nil {
		return false, err
	}

	r, ok := m.runs[number]
	if !ok {
		return false, ErrRunNotFound
	}

	kept := r.Locations[:0:0]
	removed := false
	for _, loc := range r.Locations {
		if match.Matches(loc) {
			removed = true
			continue
		}
		kept = append(kept, loc)
	}
	if !removed {
		return false, nil
	}

	r.Locations = kept
	r.Deletions = append(r.Deletions, d)
	m.runs[number] = r
	m.Mutations++
	return true, nil
}

func (m *MockClient) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateErr()
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockClient) stateErr() error {
	if m.closed {
		return ErrClosed
	}
	if m.Unavailable {
		return ErrUnavailable
	}
	return nil
}

func cloneRun(r Run) Run {
	out := r
	out.Locations = append([]Location(nil), r.Locations...)
	out.Deletions = append([]Deletion(nil), r.Deletions...)
	return out
}
