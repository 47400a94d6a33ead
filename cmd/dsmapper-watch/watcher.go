package main

import (
	"strings"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/hub"
)

// watcher keeps the mirrored state and renders changes as lines.
type watcher struct {
	state   gamepad.State
	seq     int64
	synced  bool
	stopped bool
}

// Apply merges msg into the mirrored state and returns the lines to print.
// Deltas older than the last message are dropped.
func (w *watcher) Apply(msg hub.WSMessage) []string {
	if msg.Type == "delta" && w.synced && msg.Seq <= w.seq {
		return nil
	}
	w.seq = msg.Seq
	prev := w.state

	switch msg.Type {
	case "full", "event":
		if msg.Data == nil {
			return nil
		}
		w.state = *msg.Data
		w.synced = true
	case "delta":
		if msg.Changes == nil {
			return nil
		}
		c := msg.Changes
		if c.Connected != nil {
			w.state.Connected = *c.Connected
		}
		if c.Running != nil {
			w.state.Running = *c.Running
		}
		if c.Name != nil {
			w.state.Name = *c.Name
		}
		if c.Status != nil {
			w.state.Status = *c.Status
		}
		if c.Controls != nil {
			w.state.Controls = *c.Controls
		}
	default:
		return nil
	}

	lines := diff(prev, w.state)
	if msg.Type == "event" && msg.Event == hub.EventStopped {
		w.stopped = true
		lines = append(lines, "mapper stopped: "+w.state.Status)
	}
	return lines
}

// Stopped reports whether the mapper announced that it stopped.
func (w *watcher) Stopped() bool {
	return w.stopped
}

func diff(prev, cur gamepad.State) []string {
	var lines []string
	if prev.Status != cur.Status {
		lines = append(lines, "status: "+cur.Status)
	}
	if prev.Connected != cur.Connected || prev.Name != cur.Name {
		if cur.Connected {
			lines = append(lines, "device: "+cur.Name)
		} else {
			lines = append(lines, "device: none")
		}
	}
	if prev.Controls != cur.Controls {
		lines = append(lines, "active: "+activeControls(cur.Controls))
	}
	return lines
}

func activeControls(c gamepad.Controls) string {
	var names []string
	for i, on := range c {
		if on {
			names = append(names, gamepad.Control(i).String())
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, " ")
}
