// Package daemon drives cleaning modes: a single one-shot pass, or the
// continuous production loop with fatal-error backoff-and-restart.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/scour-io/scour/internal/alert"
	"github.com/scour-io/scour/internal/config"
	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/modes"
)

// Daemon schedules cleaning passes.
type Daemon struct {
	cfg     *config.Config
	cleaner *modes.Cleaner
	exec    *executor.Executor
	alerts  alert.Sink
	log     *logging.Logger
}

// New creates a Daemon.
func New(cfg *config.Config, cleaner *modes.Cleaner, exec *executor.Executor, alerts alert.Sink, log *logging.Logger) *Daemon {
	return &Daemon{
		cfg:     cfg,
		cleaner: cleaner,
		exec:    exec,
		alerts:  alerts,
		log:     log,
	}
}

// RunOnce executes a single mode and drains the worker pool before
// returning.
func (d *Daemon) RunOnce(ctx context.Context, mode modes.Mode, opts modes.Options) error {
	defer d.exec.Pool().Drain()
	return d.cleaner.Run(ctx, mode, opts)
}

// RunAll executes every mode in catalog order and drains the worker
// pool before returning. Pass failures abort the remaining modes.
func (d *Daemon) RunAll(ctx context.Context, opts modes.Options) error {
	defer d.exec.Pool().Drain()
	for _, mode := range modes.All() {
		if err := d.cleaner.Run(ctx, mode, opts); err != nil {
			return fmt.Errorf("mode %s: %w", mode, err)
		}
	}
	return nil
}

// Run is the continuous production loop. Every cycle runs shared-tier
// cleanup, abandoned cleanup (with its shared-tier pass on the
// designated host), and stale-replica cleanup, then naps for the
// configured interval.
//
// An unexpected error anywhere in the sequence is logged, reported to
// the alert sink, and followed by a short backoff before the sequence
// restarts; the daemon never terminates on a non-fatal error. On
// context cancellation the worker pool is drained before returning.
func (d *Daemon) Run(ctx context.Context, opts modes.Options) error {
	defer d.exec.Pool().Drain()

	d.log.Infof("production loop starting", map[string]any{
		"interval":   d.cfg.Cleaner.CycleInterval().String(),
		"designated": d.cfg.IsDesignated(),
	})

	for {
		err := d.cycle(ctx, opts)
		if ctx.Err() != nil {
			d.log.Info("production loop stopping")
			return ctx.Err()
		}
		if err != nil {
			d.log.Errorf("cleaning cycle failed, backing off", map[string]any{
				"error":   err.Error(),
				"backoff": d.cfg.Cleaner.Backoff().String(),
			})
			d.alerts.Report(ctx, alert.PriorityError,
				fmt.Sprintf("cleaning cycle failed: %v", err), 0)
			if !sleepCtx(ctx, d.cfg.Cleaner.Backoff()) {
				return ctx.Err()
			}
			continue
		}
		if !sleepCtx(ctx, d.cfg.Cleaner.CycleInterval()) {
			return ctx.Err()
		}
	}
}

// cycle runs one pass of the production sequence. Panics are converted
// to errors so the outer loop can back off and restart.
func (d *Daemon) cycle(ctx context.Context, opts modes.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	sequence := []struct {
		mode modes.Mode
		opts modes.Options
	}{
		{modes.ModeSharedTier, opts},
		{modes.ModeAbandoned, withDeleteLive(opts)},
		{modes.ModeStaleReplica, opts},
	}

	for _, step := range sequence {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.cleaner.Run(ctx, step.mode, step.opts); err != nil {
			return fmt.Errorf("mode %s: %w", step.mode, err)
		}
	}
	return nil
}

// withDeleteLive requests the shared-tier pass; the designated-host
// gate still applies inside the mode.
func withDeleteLive(opts modes.Options) modes.Options {
	opts.DeleteLive = true
	return opts
}

// sleepCtx sleeps for d or until the context is cancelled. Reports
// false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
