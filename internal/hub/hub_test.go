package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/dsmapper/internal/gamepad"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	require.NotNil(t, data)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNextSendsDeltaForChangedFields(t *testing.T) {
	b := NewBroadcaster(NewHub(), nil)

	data, full := b.next(gamepad.State{Running: true, Status: "Connected: DualSense"}, false)
	assert.False(t, full)
	msg := decode(t, data)
	assert.Equal(t, "delta", msg["type"])
	assert.EqualValues(t, 1, msg["seq"])

	changes := msg["changes"].(map[string]any)
	assert.Equal(t, "Connected: DualSense", changes["status"])
	assert.Equal(t, true, changes["running"])
	assert.NotContains(t, changes, "name")
	assert.NotContains(t, changes, "controls")
}

func TestNextSkipsUnchangedState(t *testing.T) {
	b := NewBroadcaster(NewHub(), nil)
	s := gamepad.State{Running: true, Status: "x"}

	_, _ = b.next(s, false)
	data, _ := b.next(s, false)
	assert.Nil(t, data)
	assert.EqualValues(t, 1, b.seq)
}

func TestNextSendsControlsAsObject(t *testing.T) {
	b := NewBroadcaster(NewHub(), nil)
	s := gamepad.State{Running: true}
	s.Controls[gamepad.R2] = true

	msg := decode(t, mustNext(b, s))
	controls := msg["changes"].(map[string]any)["controls"].(map[string]any)
	assert.Equal(t, true, controls["r2"])
	assert.Equal(t, false, controls["l2"])
	assert.Len(t, controls, int(gamepad.NumControls))
}

func TestNextSendsEventWhenMappingStops(t *testing.T) {
	b := NewBroadcaster(NewHub(), nil)
	_, _ = b.next(gamepad.State{Running: true, Connected: true}, false)

	data, full := b.next(gamepad.State{Status: "Emergency stop: combo"}, false)
	assert.True(t, full)
	msg := decode(t, data)
	assert.Equal(t, "event", msg["type"])
	assert.Equal(t, EventStopped, msg["event"])
	assert.Equal(t, "Emergency stop: combo", msg["data"].(map[string]any)["status"])
}

func TestNextForcedFull(t *testing.T) {
	b := NewBroadcaster(NewHub(), nil)

	data, full := b.next(gamepad.State{Status: "a"}, true)
	assert.True(t, full)
	msg := decode(t, data)
	assert.Equal(t, "full", msg["type"])
	assert.Equal(t, "a", msg["data"].(map[string]any)["status"])
}

func mustNext(b *Broadcaster, s gamepad.State) []byte {
	data, _ := b.next(s, false)
	return data
}

func TestSendInitialStateCarriesLastState(t *testing.T) {
	h := NewHub()
	b := NewBroadcaster(h, nil)
	_, _ = b.next(gamepad.State{Name: "DualSense Wireless Controller"}, false)

	c := &Client{hub: h, send: make(chan []byte, 1)}
	b.SendInitialState(c)

	msg := decode(t, <-c.send)
	assert.Equal(t, "full", msg["type"])
	assert.Equal(t, "DualSense Wireless Controller", msg["data"].(map[string]any)["name"])
}

func TestBroadcasterRunDeliversToClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	changes := make(chan gamepad.State)
	b := NewBroadcaster(h, changes)
	done := make(chan struct{})
	go func() {
		b.Run()
		close(done)
	}()

	c := &Client{hub: h, send: make(chan []byte, 4)}
	h.Register(c)
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)

	changes <- gamepad.State{Running: true, Status: "Connected: DualSense"}

	select {
	case data := <-c.send:
		assert.Equal(t, "delta", decode(t, data)["type"])
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	close(changes)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}

	h.Unregister(c)
	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}
