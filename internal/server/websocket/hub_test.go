package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestHub_BasicOperation tests registration and broadcast.
func TestHub_BasicOperation(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := NewClient("test-1", hub, nil)
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Broadcast(Message{Type: "query.settled", Timestamp: time.Now(), Data: map[string]any{"query_id": "q0"}})

	select {
	case received := <-client.send:
		if received.Type != "query.settled" {
			t.Errorf("expected query.settled, got %s", received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
	}
}

// TestHub_Shutdown tests that shutdown closes every client queue.
func TestHub_Shutdown(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client1 := NewClient("test-1", hub, nil)
	client2 := NewClient("test-2", hub, nil)
	hub.Register(client1)
	hub.Register(client2)
	waitForClients(t, hub, 2)

	cancel()
	waitForClients(t, hub, 0)

	for _, c := range []*Client{client1, client2} {
		if _, ok := <-c.send; ok {
			t.Errorf("expected %s queue to be closed", c.id)
		}
	}
}

// TestHub_Subscription tests per-client type filtering.
func TestHub_Subscription(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := NewClient("filtered", hub, nil)
	client.subscribe([]string{"batch.completed"})
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Broadcast(Message{Type: "query.settled"})
	hub.Broadcast(Message{Type: "batch.completed"})

	select {
	case received := <-client.send:
		if received.Type != "batch.completed" {
			t.Errorf("expected only batch.completed, got %s", received.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("client did not receive subscribed message")
	}

	client.subscribe(nil)
	if !client.wants("query.settled") {
		t.Error("expected an empty subscription to restore every type")
	}
}

// TestHub_SlowClientDropped tests that a full client queue disconnects it.
func TestHub_SlowClientDropped(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{id: "slow", hub: hub, send: make(chan Message, 2)}
	hub.Register(client)
	waitForClients(t, hub, 1)

	for i := 0; i < 5; i++ {
		hub.Broadcast(Message{Type: "query.settled", Data: i})
	}
	waitForClients(t, hub, 0)
}

// TestClient_Pumps tests a real connection end to end.
func TestClient_Pumps(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := NewClient("e2e", hub, conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Broadcast(Message{Type: "batch.completed", Data: map[string]any{"queries": 3}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != "batch.completed" {
		t.Errorf("expected batch.completed, got %s", msg.Type)
	}

	_ = conn.Close()
	waitForClients(t, hub, 0)
}
