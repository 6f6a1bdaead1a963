// Package events distributes reconciliation activity to realtime transports.
//
// The engine reports settled queries and completed batches through an
// observer; the server publishes them on a Broker, which fans every event
// out to the subscribed transports (WebSocket, SSE).
package events

import "time"

// EventType names a kind of activity.
type EventType string

// Event types.
const (
	QuerySettled    EventType = "query.settled"
	BatchCompleted  EventType = "batch.completed"
	ExtendCompleted EventType = "extend.completed"
	ChunkMatched    EventType = "chunk.matched"
	ClientConnected EventType = "client.connected"
)

// Event is one published activity record.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
