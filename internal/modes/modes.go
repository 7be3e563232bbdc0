// Package modes implements the catalog of cleaning modes. Each mode is
// a (selection predicate, deletion action, recursion policy) triple
// over the run registry or the local filesystem.
//
// The catalog is a closed set: an unknown mode name is rejected before
// any query executes.
package modes

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownMode is returned for a mode name outside the catalog.
var ErrUnknownMode = errors.New("modes: unknown mode")

// Mode names one cleaning mode.
type Mode string

const (
	// ModeSharedTier deletes shared-tier copies of done, transferred,
	// old-enough runs. Designated host only; drains one match at a time.
	ModeSharedTier Mode = "shared-tier"

	// ModeHighLevel deletes this host's replaceable high-level products
	// of very old, done, transferred runs.
	ModeHighLevel Mode = "high-level"

	// ModeStaleReplica deletes this host's leftover copies of runs that
	// another event builder finished, once a durable copy is confirmed
	// elsewhere.
	ModeStaleReplica Mode = "stale-replica"

	// ModeUnregistered quarantines and removes on-disk run folders with
	// no matching registry record.
	ModeUnregistered Mode = "unregistered"

	// ModeStaging removes unregistered artifacts from the staging
	// folder after a safety delay.
	ModeStaging Mode = "staging"

	// ModeStaleLineage removes artifacts whose lineage tag no longer
	// matches the active definition for their kind.
	ModeStaleLineage Mode = "stale-lineage"

	// ModeAbandoned purges every entry of abandoned runs on this host,
	// and on the shared tier when requested.
	ModeAbandoned Mode = "abandoned"

	// ModeReconcile clears registry entries that claim this host but
	// whose path is gone from disk.
	ModeReconcile Mode = "reconcile"
)

// modeSpec binds a mode to its implementation.
type modeSpec struct {
	run func(*Cleaner, context.Context, Options) error

	// sharedTier marks modes that mutate the shared storage tier and
	// are gated on the designated host.
	sharedTier bool
}

// catalog is the closed mode table. Adding a mode means adding exactly
// one entry here.
var catalog = map[Mode]modeSpec{
	ModeSharedTier:   {run: (*Cleaner).cleanSharedTier, sharedTier: true},
	ModeHighLevel:    {run: (*Cleaner).cleanHighLevel},
	ModeStaleReplica: {run: (*Cleaner).cleanStaleReplicas},
	ModeUnregistered: {run: (*Cleaner).cleanUnregistered},
	ModeStaging:      {run: (*Cleaner).cleanStaging},
	ModeStaleLineage: {run: (*Cleaner).cleanStaleLineage},
	ModeAbandoned:    {run: (*Cleaner).cleanAbandoned},
	ModeReconcile:    {run: (*Cleaner).reconcileRegistry},
}

// All returns every mode in stable execution order.
func All() []Mode {
	return []Mode{
		ModeSharedTier,
		ModeAbandoned,
		ModeStaleReplica,
		ModeHighLevel,
		ModeReconcile,
		ModeUnregistered,
		ModeStaging,
		ModeStaleLineage,
	}
}

// Parse validates a mode name against the catalog.
func Parse(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := catalog[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Options control one cleaning pass.
type Options struct {
	// DryRun evaluates and logs without mutating anything. Dry-run
	// passes stop after the first match: without registry mutations the
	// cursor cannot advance, so draining would loop forever.
	DryRun bool

	// Force bypasses the copy-count guard. Independent of DeleteLive.
	Force bool

	// DeleteLive includes the shared storage tier in modes that
	// otherwise only touch this host.
	DeleteLive bool

	// Reason overrides the per-mode default recorded in audit entries.
	Reason string
}

func (o Options) reason(def string) string {
	if o.Reason != "" {
		return o.Reason
	}
	return def
}
