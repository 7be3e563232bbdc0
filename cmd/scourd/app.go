package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scour-io/scour/internal/alert"
	"github.com/scour-io/scour/internal/config"
	"github.com/scour-io/scour/internal/coordinator"
	"github.com/scour-io/scour/internal/daemon"
	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/guard"
	"github.com/scour-io/scour/internal/logging"
	"github.com/scour-io/scour/internal/metrics"
	"github.com/scour-io/scour/internal/modes"
	"github.com/scour-io/scour/internal/registry"
	registryoxia "github.com/scour-io/scour/internal/registry/oxia"
)

// app wires the components behind a subcommand: config, logging,
// registry client, executor, cleaner, daemon, and the metrics server.
type app struct {
	cfg        *config.Config
	log        *logging.Logger
	reg        registry.Client
	alerts     alert.Sink
	exec       *executor.Executor
	cleaner    *modes.Cleaner
	daemon     *daemon.Daemon
	metricsSrv *metrics.Server
}

// buildApp constructs the full component graph from configuration.
// The registry must be reachable: an unreachable registry at startup
// aborts the process before any mode runs.
func buildApp(cfg *config.Config, confirm executor.Confirmer, serveMetrics bool) (*app, error) {
	logger := logging.Configure(
		cfg.Observability.LogLevel,
		cfg.Observability.LogFormat,
		cfg.Host.Name,
	)

	store, err := registryoxia.New(context.Background(), registryoxia.Config{
		ServiceAddress:  cfg.Registry.OxiaEndpoint,
		Namespace:       cfg.Registry.Namespace,
		RequestTimeout:  cfg.Registry.RequestTimeout(),
		MutationRetries: cfg.Registry.MutationRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("connect registry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Registry.RequestTimeout())
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("registry unreachable at startup: %w", err)
	}

	reg := registry.NewInstrumentedClient(store, metrics.NewRegistryMetrics(nil))

	var alerts alert.Sink
	if cfg.Alerts.Enabled {
		alerts, err = alert.NewKafkaSink(alert.KafkaConfig{
			Brokers: cfg.Alerts.Brokers,
			Topic:   cfg.Alerts.Topic,
			Host:    cfg.Host.Name,
		}, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create alert sink: %w", err)
		}
	} else {
		alerts = alert.NewLogSink(logger)
	}

	cleanerMetrics := metrics.NewCleanerMetrics(nil)

	poolSize := cfg.Cleaner.PoolSize
	if confirm != nil {
		// Interactive confirmation serializes destructive steps.
		poolSize = 1
	}
	pool := executor.NewPool(poolSize, cfg.Cleaner.TaskTimeout(), logger, alerts, cleanerMetrics)

	g := guard.New(cfg.Host.SharedTier, cfg.Cleaner.DurableKinds)
	coord := coordinator.New(cfg.Host.Name, cfg.Host.Designated, logger)

	exec := executor.New(executor.Config{
		Registry: reg,
		Guard:    g,
		Log:      logger,
		Metrics:  cleanerMetrics,
		Pool:     pool,
		Actor:    fmt.Sprintf("scourd@%s/%s", cfg.Host.Name, uuid.NewString()[:8]),
		Confirm:  confirm,
	})

	cleaner := modes.NewCleaner(modes.Deps{
		Config:   cfg,
		Registry: reg,
		Executor: exec,
		Guard:    g,
		Coord:    coord,
		Alerts:   alerts,
		Log:      logger,
		Metrics:  cleanerMetrics,
	})

	a := &app{
		cfg:     cfg,
		log:     logger,
		reg:     reg,
		alerts:  alerts,
		exec:    exec,
		cleaner: cleaner,
		daemon:  daemon.New(cfg, cleaner, exec, alerts, logger),
	}

	if serveMetrics && cfg.Observability.MetricsAddr != "" {
		a.metricsSrv = metrics.NewServer(cfg.Observability.MetricsAddr)
		a.metricsSrv.Start()
	}
	return a, nil
}

// close releases the app's resources. The worker pool is drained by
// the daemon on every exit path before close is reached.
func (a *app) close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.metricsSrv.Stop(ctx)
		cancel()
	}
	_ = a.alerts.Close()
	_ = a.reg.Close()
}

// loadConfig loads from an explicit path or falls back to defaults
// plus environment overrides.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
