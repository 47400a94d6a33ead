package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/soar/dsmapper/internal/gamepad"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
)

// Broadcaster listens for state changes and broadcasts them to the hub.
type Broadcaster struct {
	hub     *Hub
	changes <-chan gamepad.State

	mu        sync.Mutex
	lastState gamepad.State
	seq       int64
}

func NewBroadcaster(h *Hub, changes <-chan gamepad.State) *Broadcaster {
	return &Broadcaster{
		hub:     h,
		changes: changes,
	}
}

// Run starts the broadcaster loop. Should be run in a goroutine. It returns
// when the changes channel is closed.
func (b *Broadcaster) Run() {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	var deltaCount int64

	for {
		select {
		case state, ok := <-b.changes:
			if !ok {
				return
			}

			data, full := b.next(state, deltaCount >= deltaCountSync)
			if data == nil {
				continue
			}
			if full {
				deltaCount = 0
			} else {
				deltaCount++
			}
			b.hub.Broadcast(data)

		case <-ticker.C:
			b.mu.Lock()
			b.seq++
			data := b.encode(NewFullMessage(b.seq, &b.lastState))
			b.mu.Unlock()
			if data != nil {
				b.hub.Broadcast(data)
			}
		}
	}
}

// next records state and returns the encoded message to broadcast, or nil
// if nothing changed. full reports whether a full message was produced.
func (b *Broadcaster) next(state gamepad.State, forceFull bool) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delta := gamepad.ComputeDelta(b.lastState, state)
	wasRunning := b.lastState.Running
	b.lastState = state

	if delta.IsEmpty() {
		return nil, false
	}
	b.seq++

	switch {
	case wasRunning && !state.Running:
		return b.encode(NewEventMessage(b.seq, EventStopped, &state)), true
	case forceFull:
		return b.encode(NewFullMessage(b.seq, &state)), true
	}
	return b.encode(NewDeltaMessage(b.seq, delta)), false
}

// SendInitialState sends the current full state to a newly connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	b.mu.Lock()
	b.seq++
	data := b.encode(NewFullMessage(b.seq, &b.lastState))
	b.mu.Unlock()

	if data == nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (b *Broadcaster) encode(msg *WSMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msg.Type, err)
		return nil
	}
	return data
}
