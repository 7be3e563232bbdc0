// Package guard enforces the minimum-copy invariant: no deletion may
// leave a run without a surviving copy of its irreplaceable low-level
// data, unless explicitly overridden.
package guard

import (
	"fmt"

	"github.com/scour-io/scour/internal/registry"
)

// ViolationError reports a deletion that would breach the minimum-copy
// invariant. It is fatal in production execution; dry-run logs it and
// carries on so operators can audit would-be violations safely.
type ViolationError struct {
	Run      int
	Kind     string
	Live     int
	Durable  int
	Required int
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf(
		"integrity violation: run %d kind %q has %d live and %d durable copies, need %d durable or a live copy",
		e.Run, e.Kind, e.Live, e.Durable, e.Required)
}

// Guard evaluates candidate deletions against a run's surviving copies.
type Guard struct {
	sharedHost string
	durable    map[string]struct{}
}

// New creates a Guard. sharedHost is the distinguished shared-tier host
// label; durableKinds are the data kinds treated as irreplaceable.
func New(sharedHost string, durableKinds []string) *Guard {
	durable := make(map[string]struct{}, len(durableKinds))
	for _, k := range durableKinds {
		durable[k] = struct{}{}
	}
	return &Guard{sharedHost: sharedHost, durable: durable}
}

// IsDurable reports whether kind is an irreplaceable low-level kind.
func (g *Guard) IsDurable(kind string) bool {
	_, ok := g.durable[kind]
	return ok
}

// Check evaluates whether deleting one location of the given kind from
// the run is permitted.
//
// live counts shared-tier locations; durable counts locations of
// irreplaceable kinds. Deletion is allowed when a live copy survives on
// the shared tier, or when enough durable copies exist: one, plus one
// extra when the entry being deleted is itself durable, so removing the
// only durable copy is always rejected. override bypasses the check.
func (g *Guard) Check(run *registry.Run, kind string, override bool) error {
	if override {
		return nil
	}

	live, durable := 0, 0
	for _, loc := range run.Locations {
		if loc.Host == g.sharedHost {
			live++
		}
		if g.IsDurable(loc.Kind) {
			durable++
		}
	}

	required := 1
	if g.IsDurable(kind) {
		required = 2
	}

	if live >= 1 || durable >= required {
		return nil
	}
	return &ViolationError{
		Run:      run.Number,
		Kind:     kind,
		Live:     live,
		Durable:  durable,
		Required: required,
	}
}
