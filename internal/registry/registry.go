// Package registry defines the run-record data model and the Client
// interface for the fleet-wide run registry. The default implementation
// uses Oxia; see the oxia subpackage.
//
// Run records are created and advanced by the upstream processing
// pipeline. This package only ever removes location entries and appends
// deletion audit entries; it never creates or deletes a run record.
package registry

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by Client operations.
var (
	// ErrRunNotFound is returned when no record exists for a run number.
	ErrRunNotFound = errors.New("registry: run not found")

	// ErrUnavailable is returned when the registry cannot be reached.
	// At daemon startup this is fatal; inside a cleaning pass it aborts
	// the pass and the scheduler backs off and retries.
	ErrUnavailable = errors.New("registry: unavailable")

	// ErrConflict is returned when a record mutation lost a concurrent
	// update race more times than the client is willing to retry.
	ErrConflict = errors.New("registry: concurrent update conflict")

	// ErrClosed is returned when operations are attempted on a closed client.
	ErrClosed = errors.New("registry: client closed")
)

// Status is the processing state of a run, set by the upstream pipeline.
// The pipeline may introduce states this package does not know about;
// unknown states are carried through untouched and never selected by
// any cleaning mode.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusAbandoned Status = "abandoned"
)

// Transfer is the offsite transfer state of a run.
type Transfer string

const (
	TransferDone    Transfer = "transferred"
	TransferPending Transfer = "pending"
)

// Location is one physical copy of one data kind. Locations are unique
// per (Kind, Host) within a run.
type Location struct {
	// Kind tags the data product, e.g. "raw", "intermediate", "events".
	// The configured durable subset is treated as irreplaceable.
	Kind string `json:"kind"`

	// Host is the owning machine, or the distinguished shared-tier label.
	Host string `json:"host"`

	// Path is the artifact directory. A "-temp" sibling may shadow it
	// while the pipeline is still writing.
	Path string `json:"path"`
}

// Deletion is an immutable audit entry appended whenever a location
// entry is removed. Deletions are never mutated or removed.
type Deletion struct {
	Kind   string    `json:"kind"`
	Host   string    `json:"host"`
	Path   string    `json:"path,omitempty"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason"`
}

// Run is one acquisition run record.
type Run struct {
	// Number uniquely identifies the run. Always positive.
	Number int `json:"number"`

	Status   Status   `json:"status"`
	Transfer Transfer `json:"transfer"`

	// ProcessedBy is the event builder that produced the processed output.
	ProcessedBy string `json:"processedBy,omitempty"`

	Start       time.Time `json:"start"`
	ProcessedAt time.Time `json:"processedAt,omitempty"`

	Locations []Location `json:"locations"`
	Deletions []Deletion `json:"deletions,omitempty"`
}

// LocationsOn returns the locations owned by host.
func (r *Run) LocationsOn(host string) []Location {
	var out []Location
	for _, loc := range r.Locations {
		if loc.Host == host {
			out = append(out, loc)
		}
	}
	return out
}

// HasLocationOn reports whether the run has any location on host.
func (r *Run) HasLocationOn(host string) bool {
	for _, loc := range r.Locations {
		if loc.Host == host {
			return true
		}
	}
	return false
}

// FindLocation returns the location matching kind and host, if any.
func (r *Run) FindLocation(kind, host string) (Location, bool) {
	for _, loc := range r.Locations {
		if loc.Kind == kind && loc.Host == host {
			return loc, true
		}
	}
	return Location{}, false
}

// LocationMatch selects location entries within a run by (Kind, Host).
type LocationMatch struct {
	Kind string
	Host string
}

// Matches reports whether loc is selected by the match.
func (m LocationMatch) Matches(loc Location) bool {
	return loc.Kind == m.Kind && loc.Host == m.Host
}

// Filter selects run records. Zero-valued fields match anything.
type Filter struct {
	// Number selects a single run when positive.
	Number int

	// NumberAfter excludes runs up to and including the given number.
	// Drain loops use it as a cursor so a submitted-but-not-yet-applied
	// deletion cannot be matched twice.
	NumberAfter int

	Status   Status
	Transfer Transfer

	// LocationHost requires at least one location on this host.
	// When LocationKind is also set, a single entry must match both.
	LocationHost string

	// LocationKind requires at least one location of this kind.
	LocationKind string

	// ProcessedBefore requires ProcessedAt to be set and earlier.
	ProcessedBefore time.Time

	// StartedBefore requires Start to be earlier.
	StartedBefore time.Time

	// ProcessedByNot excludes runs whose processed output was produced
	// by the given host. Used to find stale replicas left behind after
	// another event builder finished the run.
	ProcessedByNot string
}

// Matches reports whether the run satisfies every set field of the filter.
func (f Filter) Matches(r *Run) bool {
	if f.Number > 0 && r.Number != f.Number {
		return false
	}
	if f.NumberAfter > 0 && r.Number <= f.NumberAfter {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Transfer != "" && r.Transfer != f.Transfer {
		return false
	}
	if !f.ProcessedBefore.IsZero() {
		if r.ProcessedAt.IsZero() || !r.ProcessedAt.Before(f.ProcessedBefore) {
			return false
		}
	}
	if !f.StartedBefore.IsZero() && !r.Start.Before(f.StartedBefore) {
		return false
	}
	if f.ProcessedByNot != "" && r.ProcessedBy == f.ProcessedByNot {
		return false
	}
	if f.LocationHost != "" || f.LocationKind != "" {
		found := false
		for _, loc := range r.Locations {
			if f.LocationHost != "" && loc.Host != f.LocationHost {
				continue
			}
			if f.LocationKind != "" && loc.Kind != f.LocationKind {
				continue
			}
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// Client is the interface to the run registry.
//
// All operations accept a context for cancellation and timeouts.
// RecordDeletion is the only mutation: it removes every location entry
// matching the given selector and appends one deletion audit entry, as
// a single atomic update on the record. It reports whether anything was
// removed; a run with no matching entry is left untouched and reported
// as not removed, which keeps retries after partial failures idempotent.
type Client interface {
	// Run retrieves a single record. Returns ErrRunNotFound if absent.
	Run(ctx context.Context, number int) (Run, error)

	// Find returns records matching the filter, ordered by run number.
	// A limit of 0 or less returns all matches.
	Find(ctx context.Context, f Filter, limit int) ([]Run, error)

	// RecordDeletion atomically removes the matching location entries
	// and appends the deletion audit entry. Returns false with a nil
	// error when no entry matched (nothing was mutated).
	RecordDeletion(ctx context.Context, number int, match LocationMatch, d Deletion) (bool, error)

	// Ping verifies the registry is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the client.
	Close() error
}
