// Package logging provides structured logging for the reconciliation service
// using zerolog. Console output is used when stderr is a terminal and JSON
// output otherwise.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("operation", "reconcile").Int("queries", 3).Msg("Batch received")
//
//	ctx := logging.WithQuery(context.Background(), "q0")
//	logging.FromContext(ctx).Warn().Err(err).Msg("Backend call failed")
package logging

import (
	"os"

	goisatty "github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Nop discards everything.
var Nop = zerolog.Nop()

// defaultLogger starts out configured from the environment; the CLI
// replaces it once flags are parsed.
var defaultLogger = NewLoggerFromConfig(EnvConfig())

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

func isatty() bool {
	fd := os.Stderr.Fd()
	return goisatty.IsTerminal(fd) || goisatty.IsCygwinTerminal(fd)
}
