package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/knwanna/universal-reconciliation-service/internal/server/events"
	ws "github.com/knwanna/universal-reconciliation-service/internal/server/websocket"
)

// HandleWebSocket handles WebSocket connections at /api/v1/updates/ws.
// Clients may send {"subscribe":["batch.completed"]} to narrow the feed.
// @Summary WebSocket activity feed
// @Description WebSocket connection streaming reconciliation activity
// @Tags updates
// @Success 101 "Switching Protocols"
// @Router /api/v1/updates/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID := uuid.NewString()
	client := ws.NewClient(clientID, h.wsHub, conn)
	h.wsHub.Register(client)

	h.broker.Publish(events.ClientConnected, map[string]any{
		"client_id": clientID,
		"transport": "websocket",
	})

	// Start client pumps
	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles Server-Sent Events at /api/v1/updates/stream.
// @Summary SSE activity stream
// @Description Server-Sent Events stream of reconciliation activity
// @Tags updates
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/v1/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
