// Package application provides the application interface for reconciler commands
// and the HTTP server.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            engine, err := app.Engine()
//	            if err != nil {
//	                return err
//	            }
//	            result, err := engine.Reconcile(cmd.Context(), batch)
//	            // ... render result
//	            return err
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    EngineFunc: func(opts ...reconcile.Option) (*reconcile.Engine, error) {
//	        return reconcile.New(backend.StaticStub(answer), opts...)
//	    },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Application provides what commands and the server need from the process.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Engine returns a reconciliation engine over the configured backend.
	// Options are applied after the configured engine tunables, so callers
	// can attach observers or override limits per use.
	Engine(opts ...reconcile.Option) (*reconcile.Engine, error)

	// Manifest returns the configuration of the service description document.
	Manifest() manifest.Config

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, markdown).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
