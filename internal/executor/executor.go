// Package executor performs physical deletions and the paired registry
// mutation. Every deletion consults the copy-count guard first, and the
// registry is only mutated after the filesystem operation succeeds, so
// a failed delete can always be retried.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/scour-io/scour/internal/guard"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/metrics"
	"github.com/scour-io/scour/internal/registry"
)

// Result is the outcome of a Delete call.
type Result int

const (
	// ResultDeleted means the path was removed and the registry entry
	// moved into the deletion history.
	ResultDeleted Result = iota

	// ResultAlreadyAbsent means the path was already gone from disk;
	// the registry entry, if still present, was cleared.
	ResultAlreadyAbsent

	// ResultDryRun means the guard approved but nothing was touched.
	ResultDryRun

	// ResultDeclined means the interactive confirmation was answered no.
	ResultDeclined
)

func (r Result) String() string {
	switch r {
	case ResultDeleted:
		return "deleted"
	case ResultAlreadyAbsent:
		return "already-absent"
	case ResultDryRun:
		return "dry-run"
	case ResultDeclined:
		return "declined"
	default:
		return "unknown"
	}
}

// InconsistencyError reports a filesystem state the idempotent
// already-absent path cannot explain, e.g. a permission denial partway
// through a recursive remove. The registry is left untouched; the
// record is skipped and the pass continues.
type InconsistencyError struct {
	Run  int
	Path string
	Err  error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("filesystem inconsistency: run %d path %s: %v", e.Run, e.Path, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// Confirmer asks the operator before each destructive step.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Options control a single Delete call.
type Options struct {
	// DryRun validates and logs the intended action without mutating
	// the filesystem or the registry.
	DryRun bool

	// Force bypasses the copy-count guard. Forced destructive
	// operations always require interactive confirmation; the CLI
	// rejects Force without a Confirmer.
	Force bool

	// Reason is recorded verbatim in the deletion audit entry.
	Reason string

	// Mode labels metrics for the cleaning mode driving the deletion.
	Mode string
}

// Config assembles an Executor.
type Config struct {
	Registry registry.Client
	Guard    *guard.Guard
	Log      *logging.Logger
	Metrics  *metrics.CleanerMetrics
	Pool     *Pool

	// Actor identifies this process in deletion audit entries.
	Actor string

	// Confirm, when set, gates every destructive step interactively.
	Confirm Confirmer
}

// Executor deletes location entries from disk and from the registry.
type Executor struct {
	reg     registry.Client
	guard   *guard.Guard
	log     *logging.Logger
	metrics *metrics.CleanerMetrics
	pool    *Pool
	actor   string
	confirm Confirmer
}

// New creates an Executor.
func New(cfg Config) *Executor {
	return &Executor{
		reg:     cfg.Registry,
		guard:   cfg.Guard,
		log:     cfg.Log,
		metrics: cfg.Metrics,
		pool:    cfg.Pool,
		actor:   cfg.Actor,
		confirm: cfg.Confirm,
	}
}

// Pool returns the shared-tier worker pool.
func (e *Executor) Pool() *Pool { return e.pool }

// Delete removes one location entry: guard check, recursive filesystem
// removal of the path and its "-temp" sibling, then the atomic
// remove-location plus append-history registry mutation.
//
// In dry-run the guard still runs but a violation is a logged warning,
// not an error, so operators can audit would-be violations safely.
func (e *Executor) Delete(ctx context.Context, run *registry.Run, loc registry.Location, opts Options) (Result, error) {
	log := e.log.WithRun(run.Number)

	if err := e.guard.Check(run, loc.Kind, opts.Force); err != nil {
		if e.metrics != nil {
			e.metrics.IntegrityViolations.Inc()
		}
		if opts.DryRun {
			log.Warnf("dry-run: would be rejected", map[string]any{
				"kind": loc.Kind, "host": loc.Host, "error": err.Error(),
			})
			return ResultDryRun, nil
		}
		return 0, err
	}

	if opts.DryRun {
		log.Infof("dry-run: would delete", map[string]any{
			"kind": loc.Kind, "host": loc.Host, "path": loc.Path, "reason": opts.Reason,
		})
		return ResultDryRun, nil
	}

	if e.confirm != nil {
		prompt := fmt.Sprintf("delete run %d %s from %s (%s)?", run.Number, loc.Kind, loc.Host, loc.Path)
		if !e.confirm.Confirm(prompt) {
			log.Infof("deletion declined by operator", map[string]any{
				"kind": loc.Kind, "host": loc.Host,
			})
			return ResultDeclined, nil
		}
	}

	pathExisted, reclaimed, err := e.removeTree(run.Number, loc.Path)
	if err != nil {
		// Retryable I/O failure: do not mutate the registry.
		return 0, err
	}

	removed, err := e.reg.RecordDeletion(ctx, run.Number, registry.LocationMatch{Kind: loc.Kind, Host: loc.Host}, registry.Deletion{
		Kind:   loc.Kind,
		Host:   loc.Host,
		Path:   loc.Path,
		At:     time.Now().UTC(),
		Actor:  e.actor,
		Reason: opts.Reason,
	})
	if err != nil {
		return 0, fmt.Errorf("record deletion for run %d: %w", run.Number, err)
	}

	result := ResultDeleted
	if !pathExisted {
		result = ResultAlreadyAbsent
	}

	if e.metrics != nil {
		switch result {
		case ResultDeleted:
			e.metrics.DeletionsTotal.WithLabelValues(opts.Mode, loc.Kind).Inc()
			e.metrics.BytesReclaimed.WithLabelValues(opts.Mode).Add(float64(reclaimed))
		case ResultAlreadyAbsent:
			e.metrics.AlreadyAbsentTotal.WithLabelValues(opts.Mode).Inc()
		}
	}

	log.Infof("location deleted", map[string]any{
		"kind":    loc.Kind,
		"host":    loc.Host,
		"path":    loc.Path,
		"result":  result.String(),
		"entry":   removed,
		"bytes":   reclaimed,
		"reason":  opts.Reason,
	})
	return result, nil
}

// SubmitShared queues a shared-tier deletion on the bounded worker
// pool. Failures inside the task are logged and isolated; they never
// stop the pass that submitted them.
func (e *Executor) SubmitShared(ctx context.Context, run *registry.Run, loc registry.Location, opts Options) error {
	snapshot := *run
	name := fmt.Sprintf("run %d %s@%s", run.Number, loc.Kind, loc.Host)
	return e.pool.Submit(ctx, name, run.Number, func(taskCtx context.Context) {
		if _, err := e.Delete(taskCtx, &snapshot, loc, opts); err != nil {
			e.log.WithRun(run.Number).Errorf("shared-tier deletion failed", map[string]any{
				"kind": loc.Kind, "path": loc.Path, "error": err.Error(),
			})
		}
	})
}

// removeTree recursively removes path and its "-temp" sibling.
// It reports whether the primary path existed and how many bytes were
// freed.
func (e *Executor) removeTree(run int, path string) (existed bool, reclaimed int64, err error) {
	for _, p := range []string{path, path + "-temp"} {
		info, statErr := os.Stat(p)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				continue
			}
			return existed, reclaimed, &InconsistencyError{Run: run, Path: p, Err: statErr}
		}
		if p == path {
			existed = true
		}
		reclaimed += treeSize(p, info)
		if rmErr := os.RemoveAll(p); rmErr != nil {
			return existed, reclaimed, &InconsistencyError{Run: run, Path: p, Err: rmErr}
		}
	}
	return existed, reclaimed, nil
}

// treeSize sums file sizes under path. Best effort; walk errors are
// ignored since the tree is about to be removed anyway.
func treeSize(path string, info fs.FileInfo) int64 {
	if !info.IsDir() {
		return info.Size()
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
