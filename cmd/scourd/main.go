// Command scourd is the data-retention daemon for event-builder
// fleets. It reclaims disk space by deleting pipeline byproducts once
// they are safely duplicated elsewhere, without ever destroying the
// last copy of irreplaceable raw data.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Handle version flag before subcommand parsing
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		fmt.Printf("scourd version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "clean":
		runClean(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "version":
		fmt.Printf("scourd version %s (built %s, commit %s)\n", version, buildTime, gitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: scourd <command> [options]

Commands:
  clean       Run one cleaning mode (dry-run by default)
  daemon      Run the continuous production cleaning loop
  version     Print version information

Run 'scourd <command> --help' for more information on a command.`)
}
