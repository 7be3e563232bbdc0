package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scour-io/scour/internal/modes"
)

func runDaemon(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	production := fs.Bool("production", false, "Disable dry-run and actually delete")
	logLevel := fs.String("logging", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Println(`Usage: scourd daemon [options]

Run the continuous cleaning loop: shared-tier, abandoned, and
stale-replica passes every cycle, with backoff and restart on errors.
Without --production every pass is evaluated but nothing is deleted.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Observability.LogLevel = *logLevel
	}

	a, err := buildApp(cfg, nil, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = a.daemon.Run(ctx, modes.Options{DryRun: !*production})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Errorf("daemon exited", map[string]any{"error": err.Error()})
		a.close()
		os.Exit(1)
	}
}
