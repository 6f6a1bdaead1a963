// Package server provides the HTTP server for the reconciliation service.
package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/events"
	"github.com/knwanna/universal-reconciliation-service/internal/server/events/adapters"
	"github.com/knwanna/universal-reconciliation-service/internal/server/middleware"
	"github.com/knwanna/universal-reconciliation-service/internal/server/sse"
	ws "github.com/knwanna/universal-reconciliation-service/internal/server/websocket"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	engine         *reconcile.Engine
	cache          *cache.Cache
	broker         *events.Broker
	recorder       *events.Recorder
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
	dataRoot       *os.Root
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()

	logger.Debug().Msg("Creating new server instance")

	// Set defaults
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.DefaultCacheTTL
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = constants.MaxRequestBytes
	}

	// Fail at startup rather than on the first manifest request.
	if cfg.ManifestFile != "" {
		if _, err := manifest.Load(cfg.ManifestFile, manifest.Build(app.Manifest(), cfg.BaseURL)); err != nil {
			return nil, err
		}
	}

	var dataRoot *os.Root
	if cfg.DataDir != "" {
		root, err := os.OpenRoot(cfg.DataDir)
		if err != nil {
			return nil, errors.NewConfigError("server", "cannot open data directory "+cfg.DataDir, err)
		}
		dataRoot = root
	}

	broker := events.NewBroker(logger)
	recorder := events.NewRecorder(broker)

	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Subscribe transports to broker
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))
	logger.Debug().Msg("Realtime transports subscribed to event broker")

	// The recorder observes every batch the server runs.
	engine, err := app.Engine(reconcile.WithObserver(recorder))
	if err != nil {
		if dataRoot != nil {
			_ = dataRoot.Close()
		}
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		app:            app,
		engine:         engine,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		recorder:       recorder,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		dataRoot:  dataRoot,
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if cfg.RateLimit > 0 {
		server.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	logger.Debug().Msg("Server instance created successfully")
	return server, nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster,
// rate limiter eviction).
func (s *Server) Start() {
	s.logger.Debug().Msg("Starting background services")

	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(s.ctx)
	}

	s.logger.Debug().Msg("All background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services. Realtime clients are disconnected;
// in-flight HTTP requests are drained by http.Server.Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()
	if s.dataRoot != nil {
		if err := s.dataRoot.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Closing data directory failed")
		}
	}

	// Wait for realtime clients to drain, bounded by ctx.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.wsHub.ClientCount() > 0 || s.sseBroadcaster.ClientCount() > 0 {
		select {
		case <-ctx.Done():
			s.logger.Warn().Msg("Background services shutdown timed out")
			return ctx.Err()
		case <-ticker.C:
		}
	}

	s.logger.Info().Msg("Background services shut down successfully")
	return nil
}

// Engine returns the reconciliation engine used by the handlers.
func (s *Server) Engine() *reconcile.Engine {
	return s.engine
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
