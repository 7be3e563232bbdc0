// Package oxia implements the registry Client interface using Oxia.
//
// Each run record is stored as a single JSON document keyed by its
// zero-padded run number, so the paired remove-location plus
// append-history mutation is a compare-and-set on one key. Lost races
// are retried a bounded number of times.
package oxia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	oxiaclient "github.com/oxia-db/oxia/oxia"

	"github.com/scour-io/scour/internal/registry"
)

const (
	// runKeyPrefix is where run records live inside the namespace.
	runKeyPrefix = "/scour/v1/runs/"

	// defaultMutationRetries bounds CAS retries on RecordDeletion.
	defaultMutationRetries = 5
)

// Config configures the Oxia registry client.
type Config struct {
	// ServiceAddress is the Oxia service endpoint (e.g., "localhost:6648").
	ServiceAddress string

	// Namespace is the Oxia namespace to use (e.g., "scour/site-1").
	Namespace string

	// RequestTimeout is the timeout for individual requests.
	// Default: 30 seconds.
	RequestTimeout time.Duration

	// MutationRetries is the number of CAS retries for RecordDeletion.
	// Default: 5.
	MutationRetries int
}

// Store implements registry.Client using Oxia.
type Store struct {
	client oxiaclient.SyncClient
	config Config

	mu     sync.RWMutex
	closed bool
}

// New creates a new Oxia registry client.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ServiceAddress == "" {
		return nil, errors.New("oxia: service address is required")
	}
	if cfg.Namespace == "" {
		return nil, errors.New("oxia: namespace is required")
	}
	if cfg.MutationRetries <= 0 {
		cfg.MutationRetries = defaultMutationRetries
	}

	opts := []oxiaclient.ClientOption{
		oxiaclient.WithNamespace(cfg.Namespace),
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, oxiaclient.WithRequestTimeout(cfg.RequestTimeout))
	}

	client, err := oxiaclient.NewSyncClient(cfg.ServiceAddress, opts...)
	if err != nil {
		return nil, fmt.Errorf("oxia: failed to create client: %w: %w", registry.ErrUnavailable, err)
	}

	return &Store{client: client, config: cfg}, nil
}

// RunKey returns the storage key for a run number.
func RunKey(number int) string {
	return fmt.Sprintf("%s%08d", runKeyPrefix, number)
}

// Run retrieves a single record.
func (s *Store) Run(ctx context.Context, number int) (registry.Run, error) {
	if err := s.checkOpen(); err != nil {
		return registry.Run{}, err
	}

	_, value, _, err := s.client.Get(ctx, RunKey(number))
	if err != nil {
		if errors.Is(err, oxiaclient.ErrKeyNotFound) {
			return registry.Run{}, registry.ErrRunNotFound
		}
		return registry.Run{}, fmt.Errorf("oxia: get run %d: %w: %w", number, registry.ErrUnavailable, err)
	}

	var run registry.Run
	if err := json.Unmarshal(value, &run); err != nil {
		return registry.Run{}, fmt.Errorf("oxia: decode run %d: %w", number, err)
	}
	return run, nil
}

// Find scans the run keyspace and returns records matching the filter.
// Records are keyed by zero-padded run number, so the scan yields them
// in run-number order.
func (s *Store) Find(ctx context.Context, f registry.Filter, limit int) ([]registry.Run, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	results := s.client.RangeScan(ctx, runKeyPrefix, prefixEnd(runKeyPrefix))

	var runs []registry.Run
	for result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("oxia: find: %w: %w", registry.ErrUnavailable, result.Err)
		}

		var run registry.Run
		if err := json.Unmarshal(result.Value, &run); err != nil {
			// A malformed record is skipped rather than failing the
			// whole scan; the upstream pipeline owns record contents.
			continue
		}
		if !f.Matches(&run) {
			continue
		}

		runs = append(runs, run)
		if limit > 0 && len(runs) >= limit {
			go drainRangeScan(results)
			return runs, nil
		}
	}
	return runs, nil
}

// RecordDeletion removes the matching location entries and appends the
// deletion audit entry as a single CAS update on the record key.
func (s *Store) RecordDeletion(ctx context.Context, number int, match registry.LocationMatch, d registry.Deletion) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	key := RunKey(number)
	for attempt := 0; attempt < s.config.MutationRetries; attempt++ {
		_, value, version, err := s.client.Get(ctx, key)
		if err != nil {
			if errors.Is(err, oxiaclient.ErrKeyNotFound) {
				return false, registry.ErrRunNotFound
			}
			return false, fmt.Errorf("oxia: record deletion for run %d: %w: %w", number, registry.ErrUnavailable, err)
		}

		var run registry.Run
		if err := json.Unmarshal(value, &run); err != nil {
			return false, fmt.Errorf("oxia: decode run %d: %w", number, err)
		}

		kept := run.Locations[:0:0]
		removed := false
		for _, loc := range run.Locations {
			if match.Matches(loc) {
				removed = true
				continue
			}
			kept = append(kept, loc)
		}
		if !removed {
			// Nothing matched; the entry is already gone. No mutation.
			return false, nil
		}

		run.Locations = kept
		run.Deletions = append(run.Deletions, d)

		updated, err := json.Marshal(&run)
		if err != nil {
			return false, fmt.Errorf("oxia: encode run %d: %w", number, err)
		}

		_, _, err = s.client.Put(ctx, key, updated,
			oxiaclient.ExpectedVersionId(version.VersionId))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, oxiaclient.ErrUnexpectedVersionId) {
			// Lost a race with a concurrent writer; re-read and retry.
			continue
		}
		return false, fmt.Errorf("oxia: record deletion for run %d: %w: %w", number, registry.ErrUnavailable, err)
	}

	return false, fmt.Errorf("oxia: record deletion for run %d: %w", number, registry.ErrConflict)
}

// Ping verifies the registry is reachable with a cheap point read.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, _, _, err := s.client.Get(ctx, runKeyPrefix+"probe")
	if err != nil && !errors.Is(err, oxiaclient.ErrKeyNotFound) {
		return fmt.Errorf("oxia: ping: %w: %w", registry.ErrUnavailable, err)
	}
	return nil
}

// Close releases resources held by the client.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return registry.ErrClosed
	}
	return nil
}

// prefixEnd returns the key that is lexicographically greater than all
// keys with the given prefix.
func prefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xFF {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

func drainRangeScan(results <-chan oxiaclient.GetResult) {
	for range results {
	}
}
