package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scour-io/scour/internal/executor"
	"github.com/scour-io/scour/internal/modes"
)

func runClean(args []string) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	modeName := fs.String("mode", "", "Cleaning mode to run, or \"all\"")
	number := fs.Int("number", 0, "Purge a single run from this host, bypassing mode selection")
	deleteLive := fs.Bool("delete-live", false, "Include the shared storage tier")
	force := fs.Bool("force", false, "Bypass the copy-count safety invariant (requires --ask-confirm)")
	production := fs.Bool("production", false, "Disable dry-run and actually delete")
	askConfirm := fs.Bool("ask-confirm", false, "Ask for confirmation before each destructive step")
	logLevel := fs.String("logging", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Println(`Usage: scourd clean [options]

Run one cleaning mode. Without --production nothing is deleted; the
selected mode is evaluated and the intended actions are logged.

Modes: shared-tier, high-level, stale-replica, unregistered, staging,
stale-lineage, abandoned, reconcile, all.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// A forced destructive operation always requires a human in the loop.
	if *force && !*askConfirm {
		fmt.Fprintln(os.Stderr, "--force requires --ask-confirm")
		os.Exit(1)
	}
	if *modeName == "" && *number == 0 {
		fmt.Fprintln(os.Stderr, "one of --mode or --number is required")
		os.Exit(1)
	}
	if *modeName != "" && *number != 0 {
		fmt.Fprintln(os.Stderr, "--mode and --number are mutually exclusive")
		os.Exit(1)
	}

	// Validate the mode against the catalog before touching anything.
	var mode modes.Mode
	runAll := false
	if *modeName != "" {
		if *modeName == "all" {
			runAll = true
		} else {
			var err error
			mode, err = modes.Parse(*modeName)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Observability.LogLevel = *logLevel
	}

	var confirm *stdinConfirmer
	if *askConfirm {
		confirm = &stdinConfirmer{in: bufio.NewReader(os.Stdin)}
	}

	a, err := buildApp(cfg, confirmOrNil(confirm), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := modes.Options{
		DryRun:     !*production,
		Force:      *force,
		DeleteLive: *deleteLive,
	}

	switch {
	case *number != 0:
		err = a.cleaner.PurgeRun(ctx, *number, opts)
		a.exec.Pool().Drain()
	case runAll:
		err = a.daemon.RunAll(ctx, opts)
	default:
		err = a.daemon.RunOnce(ctx, mode, opts)
	}
	if err != nil {
		a.log.Errorf("clean failed", map[string]any{"error": err.Error()})
		a.close()
		os.Exit(1)
	}
}

// stdinConfirmer asks y/n questions on the terminal.
type stdinConfirmer struct {
	in *bufio.Reader
}

func (c *stdinConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// confirmOrNil keeps a typed-nil *stdinConfirmer from sneaking into
// the executor's interface field.
func confirmOrNil(c *stdinConfirmer) executor.Confirmer {
	if c == nil {
		return nil
	}
	return c
}
