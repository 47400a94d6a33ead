package hub

import (
	"time"

	"github.com/soar/dsmapper/internal/gamepad"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string                `json:"type"`              // Message type: "full", "delta", "event"
	Seq       int64                 `json:"seq"`               // Sequence number for ordering
	Timestamp int64                 `json:"timestamp"`         // Unix timestamp in milliseconds
	Event     string                `json:"event,omitempty"`   // Event name for type "event"
	Data      *gamepad.State        `json:"data,omitempty"`    // Full state for type "full" or "event"
	Changes   *gamepad.DeltaChanges `json:"changes,omitempty"` // Delta changes for type "delta"
}

// Event names.
const (
	EventStopped = "stopped"
)

// NewFullMessage creates a "full" type message containing the complete state.
func NewFullMessage(seq int64, state *gamepad.State) *WSMessage {
	return &WSMessage{
		Type:      "full",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      state,
	}
}

// NewDeltaMessage creates a "delta" type message containing only changed fields.
func NewDeltaMessage(seq int64, changes *gamepad.DeltaChanges) *WSMessage {
	return &WSMessage{
		Type:      "delta",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Changes:   changes,
	}
}

// NewEventMessage creates an "event" type message for special events.
func NewEventMessage(seq int64, event string, state *gamepad.State) *WSMessage {
	return &WSMessage{
		Type:      "event",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Event:     event,
		Data:      state,
	}
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type string `json:"type"`
}
