package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/internal/server/events"
	"github.com/knwanna/universal-reconciliation-service/internal/server/sse"
	ws "github.com/knwanna/universal-reconciliation-service/internal/server/websocket"
)

// TestAdapters_ImplementSubscriber checks both adapters satisfy the interface.
func TestAdapters_ImplementSubscriber(t *testing.T) {
	logger := zerolog.Nop()
	var _ events.Subscriber = NewWebSocketSubscriber(ws.NewHub(&logger))
	var _ events.Subscriber = NewSSESubscriber(sse.NewBroadcaster(&logger))
}

// TestAdapters_BrokerToSSE tests an event travelling from the broker into
// an SSE stream.
func TestAdapters_BrokerToSSE(t *testing.T) {
	logger := zerolog.Nop()
	broker := events.NewBroker(&logger)
	broadcaster := sse.NewBroadcaster(&logger)
	hub := ws.NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker.Subscribe(NewSSESubscriber(broadcaster))
	broker.Subscribe(NewWebSocketSubscriber(hub))
	go broker.Run(ctx)
	go broadcaster.Run(ctx)
	go hub.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for broker.SubscriberCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("subscribers not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sub := NewSSESubscriber(broadcaster)
	if err := sub.Send(events.Event{ID: "evt-1", Type: events.QuerySettled, Data: nil}); err != nil {
		t.Errorf("Send() returned error: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}

	broker.Publish(events.BatchCompleted, map[string]any{"queries": 1})
	if published, _ := broker.Stats(); published != 1 {
		t.Errorf("expected 1 published event, got %d", published)
	}
}
