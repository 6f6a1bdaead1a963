package server

import (
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/handlers"
	"github.com/knwanna/universal-reconciliation-service/internal/server/middleware"
	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(handlers.Deps{
		Engine:          s.engine,
		Manifest:        s.manifest,
		Cache:           s.cache,
		Broker:          s.broker,
		Recorder:        s.recorder,
		WSHub:           s.wsHub,
		SSEBroadcaster:  s.sseBroadcaster,
		Upgrader:        s.upgrader,
		Logger:          s.logger,
		Datasets:        s.datasets(),
		MaxRequestBytes: s.config.MaxRequestBytes,
		Build: handlers.BuildInfo{
			Service: s.app.Manifest().Name,
			Version: s.app.Version(),
			Commit:  s.app.Commit(),
		},
		StartTime: s.startTime,
	})

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("/health", only(h.HandleHealth, http.MethodGet))
	mux.HandleFunc(prefix+"/health", only(h.HandleHealth, http.MethodGet))
	mux.HandleFunc(prefix+"/ready", only(h.HandleReady, http.MethodGet))

	// Reconciliation protocol
	mux.HandleFunc(prefix+"/reconcile", only(h.HandleReconcile, http.MethodGet, http.MethodPost))
	mux.HandleFunc(prefix+"/suggest/entity", only(h.HandleSuggest(reconcile.SuggestEntity), http.MethodGet))
	mux.HandleFunc(prefix+"/suggest/type", only(h.HandleSuggest(reconcile.SuggestType), http.MethodGet))
	mux.HandleFunc(prefix+"/suggest/property", only(h.HandleSuggest(reconcile.SuggestProperty), http.MethodGet))
	mux.HandleFunc(prefix+"/suggest/flyout", only(h.HandleFlyout, http.MethodGet))
	mux.HandleFunc(prefix+"/preview", only(h.HandlePreview, http.MethodGet))
	mux.HandleFunc(prefix+"/extend", only(h.HandleExtend, http.MethodGet, http.MethodPost))
	mux.HandleFunc(prefix+"/extend/propose", only(h.HandlePropose, http.MethodGet, http.MethodPost))
	mux.HandleFunc(prefix+"/stream-chunk", only(h.HandleStreamChunk, http.MethodPost))

	// Admin
	mux.HandleFunc(prefix+"/stats", only(h.HandleStats, http.MethodGet))

	// Real-time endpoints
	mux.HandleFunc(prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc(prefix+"/updates/stream", h.HandleSSE)

	// OpenAPI specification endpoints
	mux.HandleFunc(prefix+"/openapi.json", only(h.HandleOpenAPIJSON, http.MethodGet))
	mux.HandleFunc(prefix+"/openapi.yaml", only(h.HandleOpenAPIYAML, http.MethodGet))

	// Metrics endpoint (optional)
	if s.config.MetricsEnabled {
		mux.HandleFunc("/metrics", only(h.HandleMetrics, http.MethodGet))
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if s.rateLimiter != nil {
		handler = middleware.RateLimit(s.rateLimiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.APIKey = cfg.AuthAPIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(handler)
}

// datasets exposes the data directory, or nil when none is configured.
func (s *Server) datasets() fs.FS {
	if s.dataRoot == nil {
		return nil
	}
	return s.dataRoot.FS()
}

// manifest builds the service manifest for the origin r was addressed to,
// applying the configured YAML override. Results are cached per origin.
func (s *Server) manifest(r *http.Request) (*manifest.Manifest, error) {
	base := s.baseURL(r)
	key := cache.Key("manifest", base)
	if m, ok := cache.Lookup[*manifest.Manifest](s.cache, key); ok {
		return m, nil
	}

	cfg := s.app.Manifest()
	cfg.PathPrefix = s.config.PathPrefix
	m := manifest.Build(cfg, base)
	if s.config.ManifestFile != "" {
		var err error
		if m, err = manifest.Load(s.config.ManifestFile, m); err != nil {
			return nil, err
		}
	}

	s.cache.Set(key, m)
	return m, nil
}

// baseURL returns the configured public origin, or the one the client used.
func (s *Server) baseURL(r *http.Request) string {
	if s.config.BaseURL != "" {
		return strings.TrimRight(s.config.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// only rejects methods outside allowed with 405.
func only(next http.HandlerFunc, allowed ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(allowed, r.Method) {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			response.MethodNotAllowed(w, r.Method)
			return
		}
		next(w, r)
	}
}
