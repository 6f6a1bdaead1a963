// Package app provides the application context and dependency management
// for the reconciler CLI. It centralizes configuration, logging, and the
// answer backend shared by every command.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// App represents the reconciler application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Backend (lazy-initialized, singleton)
	mu      sync.Mutex
	backend backend.Backend
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Backend returns the answer backend, creating it on first use. The Gemini
// client is wrapped with the configured timeout and rate limit.
func (a *App) Backend(ctx context.Context) (backend.Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.backend != nil {
		return a.backend, nil
	}

	gemini, err := backend.NewGemini(ctx, backend.GeminiConfigFromEnv(backend.GeminiConfig{
		APIKey:          a.config.APIKey,
		Project:         a.config.Project,
		Location:        a.config.Location,
		Model:           a.config.Model,
		Temperature:     float32(a.config.Temperature),
		MaxOutputTokens: int32(a.config.MaxOutputTokens),
	}))
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("backend", gemini.Name()).
		Str("model", gemini.Model()).
		Msg("Answer backend created")

	a.backend = backend.WithLimits(gemini, backend.Limits{
		Timeout:           a.config.BackendTimeout,
		RequestsPerSecond: a.config.BackendRPS,
		Burst:             a.config.BackendBurst,
	})
	return a.backend, nil
}

// Engine returns a reconciliation engine over the configured backend.
// Caller options are applied after the configured tunables.
func (a *App) Engine(opts ...reconcile.Option) (*reconcile.Engine, error) {
	b, err := a.Backend(context.Background())
	if err != nil {
		return nil, err
	}

	engine, err := reconcile.New(b, append(a.engineOptions(), opts...)...)
	if err != nil {
		return nil, errors.NewConfigError("engine", "invalid engine configuration", err)
	}
	return engine, nil
}

// engineOptions translates configured tunables; unset values keep the
// engine defaults.
func (a *App) engineOptions() []reconcile.Option {
	opts := []reconcile.Option{reconcile.WithLogger(a.logger)}
	if a.config.MaxBatchSize > 0 {
		opts = append(opts, reconcile.WithMaxBatchSize(a.config.MaxBatchSize))
	}
	if a.config.MaxConcurrency > 0 {
		opts = append(opts, reconcile.WithMaxConcurrency(a.config.MaxConcurrency))
	}
	if a.config.MatchThreshold > 0 {
		opts = append(opts, reconcile.WithMatchThreshold(a.config.MatchThreshold))
	}
	if a.config.DefaultLimit > 0 {
		opts = append(opts, reconcile.WithDefaultLimit(a.config.DefaultLimit))
	}
	return opts
}

// Manifest returns the service description configuration.
func (a *App) Manifest() manifest.Config {
	cfg := manifest.DefaultConfig()
	if a.config.ServiceName != "" {
		cfg.Name = a.config.ServiceName
	}
	if a.config.IdentifierSpace != "" {
		cfg.IdentifierSpace = a.config.IdentifierSpace
	}
	if a.config.SchemaSpace != "" {
		cfg.SchemaSpace = a.config.SchemaSpace
	}
	cfg.ViewURL = a.config.ViewURL
	if a.config.DefaultLimit > 0 {
		cfg.ExtendLimit = a.config.DefaultLimit
	}
	return cfg
}

// Shutdown releases application resources.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Application shutdown complete")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithBackend sets the answer backend (useful for testing).
func WithBackend(b backend.Backend) Option {
	return func(a *App) error {
		a.backend = b
		return nil
	}
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)
