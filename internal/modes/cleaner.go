package modes

import (
	"context"
	"fmt"
	"time"

	"github.com/scour-io/scour/internal/alert"
	"github.com/scour-io/scour/internal/config"
	"github.com/scour-io/scour/internal/coordinator"
	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/guard"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/metrics"
	"github.com/scour-io/scour/internal/registry"
)

// Cleaner drives the cleaning modes against the registry and this
// host's filesystem tiers.
type Cleaner struct {
	cfg     *config.Config
	reg     registry.Client
	exec    *executor.Executor
	guard   *guard.Guard
	coord   *coordinator.Coordinator
	alerts  alert.Sink
	log     *logging.Logger
	metrics *metrics.CleanerMetrics

	// now is a hook for tests.
	now func() time.Time
}

// Deps assembles a Cleaner.
type Deps struct {
	Config   *config.Config
	Registry registry.Client
	Executor *executor.Executor
	Guard    *guard.Guard
	Coord    *coordinator.Coordinator
	Alerts   alert.Sink
	Log      *logging.Logger
	Metrics  *metrics.CleanerMetrics
}

// NewCleaner creates a Cleaner.
func NewCleaner(d Deps) *Cleaner {
	return &Cleaner{
		cfg:     d.Config,
		reg:     d.Registry,
		exec:    d.Executor,
		guard:   d.Guard,
		coord:   d.Coord,
		alerts:  d.Alerts,
		log:     d.Log,
		metrics: d.Metrics,
		now:     time.Now,
	}
}

// Run executes one cleaning pass of the given mode. Unknown modes are
// rejected before any query executes. Per-record errors inside a pass
// are isolated; an error return means the pass itself could not run.
func (c *Cleaner) Run(ctx context.Context, mode Mode, opts Options) error {
	spec, ok := catalog[mode]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if spec.sharedTier && !c.coord.AllowShared(string(mode)) {
		return nil
	}

	c.log.Infof("cleaning pass starting", map[string]any{
		"mode":   string(mode),
		"dryRun": opts.DryRun,
	})

	start := c.now()
	err := spec.run(c, ctx, opts)
	if c.metrics != nil {
		c.metrics.PassDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}
	return err
}

// PurgeRun removes every location entry a single run holds on this
// host, bypassing mode selection. With opts.DeleteLive and the
// designated-host gate it also covers the shared tier.
func (c *Cleaner) PurgeRun(ctx context.Context, number int, opts Options) error {
	run, err := c.reg.Run(ctx, number)
	if err != nil {
		return err
	}

	hosts := []string{c.coord.Host()}
	if opts.DeleteLive && c.coord.AllowShared("purge-run") {
		hosts = append(hosts, c.cfg.Host.SharedTier)
	}

	for _, host := range hosts {
		for _, loc := range run.LocationsOn(host) {
			current, err := c.reg.Run(ctx, number)
			if err != nil {
				return err
			}
			execOpts := executor.Options{
				DryRun: opts.DryRun,
				Force:  opts.Force,
				Reason: opts.reason("operator purge"),
				Mode:   "purge-run",
			}
			if host == c.cfg.Host.SharedTier {
				if err := c.exec.SubmitShared(ctx, &current, loc, execOpts); err != nil {
					return err
				}
				continue
			}
			if _, err := c.exec.Delete(ctx, &current, loc, execOpts); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordError isolates a per-record failure: one bad record does not
// stop the batch.
func (c *Cleaner) recordError(mode Mode, number int, err error) {
	if c.metrics != nil {
		c.metrics.PassErrors.WithLabelValues(string(mode)).Inc()
	}
	c.log.WithRun(number).Errorf("record skipped", map[string]any{
		"mode":  string(mode),
		"error": err.Error(),
	})
}

// durableElsewhere reports whether the run has at least one durable
// copy on a host other than the given one.
func (c *Cleaner) durableElsewhere(run *registry.Run, host string) bool {
	for _, loc := range run.Locations {
		if loc.Host != host && c.guard.IsDurable(loc.Kind) {
			return true
		}
	}
	return false
}
