package modes

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/guard"
	"github.com/scour-io/scour/internal/registry"
)

// cleanSharedTier deletes the shared-tier copies of done, transferred,
// old-enough runs. It drains one matching run at a time behind a
// run-number cursor: each successful deletion removes the record from
// future query results, and the cursor keeps a submitted-but-pending
// pool deletion from matching twice. The loop is capped so a
// misbehaving predicate cannot spin forever.
func (c *Cleaner) cleanSharedTier(ctx context.Context, opts Options) error {
	cutoff := c.now().Add(-time.Duration(c.cfg.Cleaner.SharedMinAgeHours) * time.Hour)
	shared := c.cfg.Host.SharedTier

	cursor := 0
	for i := 0; i < c.cfg.Cleaner.IterationCap; i++ {
		runs, err := c.reg.Find(ctx, registry.Filter{
			Status:        registry.StatusDone,
			Transfer:      registry.TransferDone,
			StartedBefore: cutoff,
			LocationHost:  shared,
			NumberAfter:   cursor,
		}, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return nil
		}

		run := runs[0]
		cursor = run.Number
		for _, loc := range run.LocationsOn(shared) {
			err := c.exec.SubmitShared(ctx, &run, loc, executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("shared-tier cleanup: transferred and aged out"),
				Mode:   string(ModeSharedTier),
			})
			if err != nil {
				return err
			}
		}

		if opts.DryRun {
			// Without registry mutations the cursor never drains; one
			// match is enough to audit.
			return nil
		}
	}
	return nil
}

// cleanHighLevel deletes this host's replaceable high-level products of
// very old, done, transferred runs. Single pass over the full result set.
func (c *Cleaner) cleanHighLevel(ctx context.Context, opts Options) error {
	cutoff := c.now().Add(-time.Duration(c.cfg.Cleaner.HighLevelMinAgeDays) * 24 * time.Hour)
	host := c.coord.Host()

	runs, err := c.reg.Find(ctx, registry.Filter{
		Status:          registry.StatusDone,
		Transfer:        registry.TransferDone,
		ProcessedBefore: cutoff,
		LocationHost:    host,
	}, 0)
	if err != nil {
		return err
	}

	for _, run := range runs {
		for _, loc := range run.LocationsOn(host) {
			if c.guard.IsDurable(loc.Kind) {
				continue
			}
			_, err := c.exec.Delete(ctx, &run, loc, executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("high-level cleanup: replaceable and aged out"),
				Mode:   string(ModeHighLevel),
			})
			if err != nil {
				if fatal := c.isolate(ModeHighLevel, run.Number, err); fatal != nil {
					return fatal
				}
			}
		}
		if opts.DryRun {
			return nil
		}
	}
	return nil
}

// cleanStaleReplicas deletes this host's leftover copies of runs that
// another event builder finished, once at least one durable copy is
// confirmed on some other host.
func (c *Cleaner) cleanStaleReplicas(ctx context.Context, opts Options) error {
	host := c.coord.Host()

	runs, err := c.reg.Find(ctx, registry.Filter{
		Status:         registry.StatusDone,
		Transfer:       registry.TransferDone,
		LocationHost:   host,
		ProcessedByNot: host,
	}, 0)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if !c.durableElsewhere(&run, host) {
			c.log.WithRun(run.Number).Warn("stale replica kept: no durable copy confirmed elsewhere")
			continue
		}
		for _, loc := range run.LocationsOn(host) {
			_, err := c.exec.Delete(ctx, &run, loc, executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("stale replica: run finished by " + run.ProcessedBy),
				Mode:   string(ModeStaleReplica),
			})
			if err != nil {
				if fatal := c.isolate(ModeStaleReplica, run.Number, err); fatal != nil {
					return fatal
				}
			}
		}
		if opts.DryRun {
			return nil
		}
	}
	return nil
}

// cleanAbandoned purges every entry abandoned runs hold on this host,
// draining one run at a time behind a cursor. When the shared tier is
// requested and this is the designated host, shared-tier entries are
// purged in a bounded batch through the worker pool.
func (c *Cleaner) cleanAbandoned(ctx context.Context, opts Options) error {
	host := c.coord.Host()

	cursor := 0
	for i := 0; i < c.cfg.Cleaner.IterationCap; i++ {
		runs, err := c.reg.Find(ctx, registry.Filter{
			Status:       registry.StatusAbandoned,
			LocationHost: host,
			NumberAfter:  cursor,
		}, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			break
		}

		run := runs[0]
		cursor = run.Number
		for _, loc := range run.LocationsOn(host) {
			_, err := c.exec.Delete(ctx, &run, loc, executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("abandoned run purge"),
				Mode:   string(ModeAbandoned),
			})
			if err != nil {
				if fatal := c.isolate(ModeAbandoned, run.Number, err); fatal != nil {
					return fatal
				}
			}
		}
		if opts.DryRun {
			break
		}
	}

	if !opts.DeleteLive || !c.coord.AllowShared(string(ModeAbandoned)) {
		return nil
	}

	shared := c.cfg.Host.SharedTier
	runs, err := c.reg.Find(ctx, registry.Filter{
		Status:       registry.StatusAbandoned,
		LocationHost: shared,
	}, c.cfg.Cleaner.AbandonedSharedBatch)
	if err != nil {
		return err
	}
	for _, run := range runs {
		for _, loc := range run.LocationsOn(shared) {
			err := c.exec.SubmitShared(ctx, &run, loc, executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("abandoned run purge"),
				Mode:   string(ModeAbandoned),
			})
			if err != nil {
				return err
			}
		}
		if opts.DryRun {
			return nil
		}
	}
	return nil
}

// reconcileRegistry clears location entries that claim this host (or
// the shared tier, when requested) but whose path is gone from disk.
// The executor's already-absent path turns each into a registry-only
// mutation. Single pass.
func (c *Cleaner) reconcileRegistry(ctx context.Context, opts Options) error {
	hosts := []string{c.coord.Host()}
	if opts.DeleteLive && c.coord.AllowShared(string(ModeReconcile)) {
		hosts = append(hosts, c.cfg.Host.SharedTier)
	}

	for _, host := range hosts {
		runs, err := c.reg.Find(ctx, registry.Filter{
			Status:       registry.StatusDone,
			LocationHost: host,
		}, 0)
		if err != nil {
			return err
		}

		for _, run := range runs {
			for _, loc := range run.LocationsOn(host) {
				if _, statErr := os.Stat(loc.Path); !errors.Is(statErr, fs.ErrNotExist) {
					continue
				}
				_, err := c.exec.Delete(ctx, &run, loc, executor.Options{
					DryRun: opts.DryRun,
					Force:  opts.Force,
					Reason: opts.reason("reconciliation: path absent on disk"),
					Mode:   string(ModeReconcile),
				})
				if err != nil {
					if fatal := c.isolate(ModeReconcile, run.Number, err); fatal != nil {
						return fatal
					}
				}
			}
			if opts.DryRun {
				return nil
			}
		}
	}
	return nil
}

// isolate classifies a per-record deletion error. Integrity violations
// and registry outages abort the pass; anything else is logged and the
// pass continues with the remaining candidates.
func (c *Cleaner) isolate(mode Mode, number int, err error) error {
	var violation *guard.ViolationError
	if errors.As(err, &violation) {
		return err
	}
	if errors.Is(err, registry.ErrUnavailable) {
		return err
	}
	c.recordError(mode, number, err)
	return nil
}
