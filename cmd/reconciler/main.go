// Package main provides the entry point for the reconciler CLI tool.
package main

import (
	"context"
	"os"

	"github.com/knwanna/universal-reconciliation-service/cmd/reconciler/app"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		app.ExitOnError(err)
	}
}

func run(args []string) error {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		return err
	}

	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	runErr := application.Execute(ctx, args)

	// The signal context may already be cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger().Error().Err(err).Msg("Shutdown failed")
	}
	return runErr
}
