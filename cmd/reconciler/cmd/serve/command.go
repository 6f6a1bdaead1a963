// Package serve provides the HTTP server command for the reconciler CLI.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/cmd/emoji"
	"github.com/knwanna/universal-reconciliation-service/internal/server"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
)

// DefaultsFunc returns the server configuration implied by config files and
// the environment. It is called after global flags are parsed.
type DefaultsFunc func() server.Config

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application, defaults DefaultsFunc) *cobra.Command {
	base := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Start the reconciliation HTTP service",
		Long: `Start the Reconciliation Service API for OpenRefine and compatible clients.

Features:
  - Reconcile, suggest, preview, flyout and data extension endpoints
  - JSONP responses for browser clients (callback parameter)
  - WebSocket (/api/v1/updates/ws) and SSE (/api/v1/updates/stream) activity feeds
  - Stream-chunk matching against reference datasets (--data-dir)
  - In-memory caching of suggestions, previews and proposals
  - Rate limiting (requests per minute per IP)
  - API key authentication (optional)
  - CORS support for web applications
  - Request logging and panic recovery
  - Graceful shutdown with connection draining
  - Health, readiness, statistics and metrics endpoints
  - OpenAPI 3.1 documentation (/api/v1/openapi.json)`,
		Example: `  # Start on default port 8080
  reconciler serve

  # Public deployment behind a proxy
  reconciler serve --host 0.0.0.0 --base-url https://reconcile.example.org

  # Require an API key
  RECONCILER_API_KEY=secret reconciler serve --auth

  # Allow browser clients from one origin
  reconciler serve --cors-origins "https://refine.example.org"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := parseConfig(cmd, defaults())
			return runServer(cmd, cfg, app)
		},
	}

	// Server configuration flags
	cmd.Flags().IntP("port", "p", base.Port, "Server port (env HTTP_PORT)")
	cmd.Flags().String("host", base.Host, "Bind address (env HTTP_HOST)")
	cmd.Flags().String("prefix", base.PathPrefix, "API path prefix")
	cmd.Flags().String("base-url", "", "Public origin advertised in the manifest (env BASE_URL)")
	cmd.Flags().String("manifest", "", "YAML file overriding manifest fields")
	cmd.Flags().String("data-dir", "", "Directory of reference datasets for stream-chunk matching (env DATA_DIR)")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Enable API key authentication (key from RECONCILER_API_KEY)")
	cmd.Flags().String("auth-header", base.AuthHeader, "Authentication header name")

	// Performance flags
	cmd.Flags().Int("rate-limit", base.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", base.CacheTTL, "Cache TTL")
	cmd.Flags().Int64("max-body", base.MaxRequestBytes, "Maximum request body in bytes")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", base.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", base.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", base.IdleTimeout, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", base.MetricsEnabled, "Enable /metrics endpoint")

	return cmd
}

// parseConfig overlays explicitly set flags on the environment defaults.
func parseConfig(cmd *cobra.Command, cfg server.Config) server.Config {
	flags := cmd.Flags()

	if flags.Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if flags.Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix = mustGetString(cmd, "prefix")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = mustGetString(cmd, "base-url")
	}
	if flags.Changed("manifest") {
		cfg.ManifestFile = mustGetString(cmd, "manifest")
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = mustGetString(cmd, "data-dir")
	}
	if flags.Changed("cors") {
		cfg.CORSEnabled = mustGetBool(cmd, "cors")
	}
	if origins := mustGetStringSlice(cmd, "cors-origins"); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = origins
	}
	if flags.Changed("auth") {
		cfg.AuthEnabled = mustGetBool(cmd, "auth")
	}
	if flags.Changed("auth-header") {
		cfg.AuthHeader = mustGetString(cmd, "auth-header")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = mustGetInt(cmd, "rate-limit")
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL = mustGetDuration(cmd, "cache-ttl")
	}
	if flags.Changed("max-body") {
		cfg.MaxRequestBytes = mustGetInt64(cmd, "max-body")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = mustGetDuration(cmd, "read-timeout")
	}
	if flags.Changed("write-timeout") {
		cfg.WriteTimeout = mustGetDuration(cmd, "write-timeout")
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = mustGetDuration(cmd, "idle-timeout")
	}
	if flags.Changed("metrics") {
		cfg.MetricsEnabled = mustGetBool(cmd, "metrics")
	}
	return cfg
}

// runServer starts the API server.
func runServer(cmd *cobra.Command, cfg server.Config, app application.Application) error {
	logger := app.Logger()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.AuthEnabled && cfg.AuthAPIKey == "" {
		logger.Warn().Msg("Authentication enabled without RECONCILER_API_KEY; every protected request will be rejected")
	}

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Str("base_url", cfg.BaseURL).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting reconciliation server")

	srv, err := server.New(app, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start background services (WebSocket hub, SSE broadcaster, event broker)
	srv.Start()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// cmd.Context() carries the signal handling installed by main.go.
	return startWithGracefulShutdown(cmd.Context(), httpServer, srv, logger, cmd.OutOrStdout())
}

// startWithGracefulShutdown runs httpServer until ctx is cancelled, then
// drains in-flight requests and stops the background services.
func startWithGracefulShutdown(ctx context.Context, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger, out io.Writer) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Msg("HTTP server listening")

		_, _ = fmt.Fprintf(out, "%s Reconciliation service listening on %s\n", emoji.Listening, httpServer.Addr)
		_, _ = fmt.Fprintln(out, "   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(stopCtx)
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received via context")
		_, _ = fmt.Fprintf(out, "\n%s Shutting down reconciliation service...\n", emoji.Stop)

		// The parent context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		_, _ = fmt.Fprintf(out, "%s Reconciliation service stopped gracefully\n", emoji.Success)
		return nil
	}
}

// mustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetInt64 retrieves an int64 flag value or panics if the flag doesn't exist.
func mustGetInt64(cmd *cobra.Command, name string) int64 {
	val, err := cmd.Flags().GetInt64(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetStringSlice retrieves a string slice flag value or panics if the flag doesn't exist.
func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetDuration retrieves a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
