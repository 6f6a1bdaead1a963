// Package handlers provides HTTP request handlers for the reconciliation API.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/events"
	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/internal/server/sse"
	ws "github.com/knwanna/universal-reconciliation-service/internal/server/websocket"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Engine is the reconciliation surface the handlers serve.
type Engine interface {
	Reconcile(ctx context.Context, batch reconcile.Batch) (*reconcile.BatchResult, error)
	Suggest(ctx context.Context, kind reconcile.SuggestKind, prefix string, limit int) (*reconcile.SuggestResult, error)
	Preview(ctx context.Context, id string) (string, error)
	Extend(ctx context.Context, req reconcile.ExtendRequest) (*reconcile.ExtendResponse, error)
	ProposeProperties(ctx context.Context, typeID string, limit int) (*reconcile.ProposeResponse, error)
	MatchChunk(ctx context.Context, input, data string) (*reconcile.ChunkMatch, error)
}

// ManifestFunc returns the service manifest as seen by request r.
type ManifestFunc func(r *http.Request) (*manifest.Manifest, error)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Service string
	Version string
	Commit  string
}

// Deps holds everything the handlers need.
type Deps struct {
	Engine          Engine
	Manifest        ManifestFunc
	Cache           *cache.Cache
	Broker          *events.Broker
	Recorder        *events.Recorder
	WSHub           *ws.Hub
	SSEBroadcaster  *sse.Broadcaster
	Upgrader        websocket.Upgrader
	Logger          *zerolog.Logger
	// Datasets holds the reference files stream chunks are matched
	// against. Nil disables the stream-chunk endpoint.
	Datasets        fs.FS
	MaxRequestBytes int64
	Build           BuildInfo
	StartTime       time.Time
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	engine         Engine
	manifest       ManifestFunc
	cache          *cache.Cache
	broker         *events.Broker
	recorder       *events.Recorder
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	datasets       fs.FS
	maxBody        int64
	build          BuildInfo
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(deps Deps) *Handlers {
	return &Handlers{
		engine:         deps.Engine,
		manifest:       deps.Manifest,
		cache:          deps.Cache,
		broker:         deps.Broker,
		recorder:       deps.Recorder,
		wsHub:          deps.WSHub,
		sseBroadcaster: deps.SSEBroadcaster,
		upgrader:       deps.Upgrader,
		logger:         deps.Logger,
		datasets:       deps.Datasets,
		maxBody:        deps.MaxRequestBytes,
		build:          deps.Build,
		startTime:      deps.StartTime,
	}
}

// callback returns the JSONP callback of r. ok is false, and a 400 has been
// written, when the name is not a safe identifier.
func callback(w http.ResponseWriter, r *http.Request) (string, bool) {
	cb := r.URL.Query().Get("callback")
	if cb != "" && !response.ValidCallback(cb) {
		response.BadRequest(w, "Invalid callback", "callback must be a JavaScript identifier")
		return "", false
	}
	return cb, true
}

// jsonParam returns the raw JSON carried by parameter name. OpenRefine sends
// it as a query or form field; JSON clients post {"<name>": ...}. A JSON
// body without that key is taken whole. An empty result means the
// parameter is absent.
func (h *Handlers) jsonParam(w http.ResponseWriter, r *http.Request, name string) (string, error) {
	h.limitBody(w, r)

	if r.Method == http.MethodPost && isJSON(r) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return "", errors.WrapParse("json", "", err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return r.URL.Query().Get(name), nil
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return "", errors.WrapParse("json", "", err)
		}
		raw, ok := envelope[name]
		if !ok {
			return string(body), nil
		}
		// The field may itself be a JSON-encoded string.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		return string(raw), nil
	}

	if err := r.ParseForm(); err != nil {
		return "", errors.WrapParse("form", "", err)
	}
	return r.Form.Get(name), nil
}

// limitBody caps how much of the request body later reads may consume.
func (h *Handlers) limitBody(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil && h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// intParam parses an optional integer parameter; absent means 0.
func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &errors.ValidationError{Field: name, Value: raw, Message: "must be an integer"}
	}
	return n, nil
}
