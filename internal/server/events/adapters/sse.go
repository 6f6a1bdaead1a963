package adapters

import (
	"github.com/knwanna/universal-reconciliation-service/internal/server/events"
	"github.com/knwanna/universal-reconciliation-service/internal/server/sse"
)

// SSESubscriber forwards events to an SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber creates a new SSE subscriber.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send queues the event on the broadcaster, reusing the event id so
// clients can deduplicate after reconnecting.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event: string(event.Type),
		ID:    event.ID,
		Data:  event.Data,
	})
	return nil
}

// Close is a no-op; the broadcaster stops with the server context.
func (s *SSESubscriber) Close() error {
	return nil
}
