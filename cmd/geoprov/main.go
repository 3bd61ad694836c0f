// Package main is the entry point for the geoprov CLI.
//
// geoprov provisions one sub-account per geography on an account-management
// platform. Each run is resumable: a spreadsheet ledger and local (or S3)
// checkpoints record what already exists, so re-running a candidate list
// only creates what is missing.
//
// Commands: provision, status, version, completion.
//
// For detailed usage information, run:
//
//	geoprov --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/geoprov/cmd/geoprov/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// An interrupt ends the run at the next candidate. An account already
	// created still gets its checkpoint and ledger row; the summary still prints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
