package mapper

import "github.com/soar/dsmapper/internal/inject"

// Edge is a detected transition of a boolean input.
type Edge int8

const (
	NoEdge Edge = iota
	PressEdge
	ReleaseEdge
)

func (e Edge) String() string {
	switch e {
	case PressEdge:
		return "press"
	case ReleaseEdge:
		return "release"
	}
	return "none"
}

// Debouncer turns a stream of boolean samples into press/release edges.
type Debouncer struct {
	held bool
}

// Update records sample and returns the edge it caused, if any.
func (d *Debouncer) Update(sample bool) Edge {
	switch {
	case sample && !d.held:
		d.held = true
		return PressEdge
	case !sample && d.held:
		d.held = false
		return ReleaseEdge
	}
	return NoEdge
}

// Set overwrites the held state without producing an edge.
func (d *Debouncer) Set(held bool) {
	d.held = held
}

func (d *Debouncer) Held() bool {
	return d.held
}

func (d *Debouncer) Reset() {
	d.held = false
}

// KeyEdge is an edge for a synthesized key.
type KeyEdge struct {
	Key  inject.Key
	Edge Edge
}

// AxisKeys drives two mutually exclusive keys from one stick axis. Neg is
// held while the axis is below -deadzone, Pos while it is above +deadzone.
type AxisKeys struct {
	Neg, Pos inject.Key
	neg, pos Debouncer
}

// Update appends the edges caused by value to dst. Releases always come
// before presses so both keys are never held together.
func (a *AxisKeys) Update(value, deadzone float64, dst []KeyEdge) []KeyEdge {
	wantNeg := value < -deadzone
	wantPos := value > deadzone

	negEdge := a.neg.Update(wantNeg)
	posEdge := a.pos.Update(wantPos)

	if negEdge == ReleaseEdge {
		dst = append(dst, KeyEdge{a.Neg, ReleaseEdge})
	}
	if posEdge == ReleaseEdge {
		dst = append(dst, KeyEdge{a.Pos, ReleaseEdge})
	}
	if negEdge == PressEdge {
		dst = append(dst, KeyEdge{a.Neg, PressEdge})
	}
	if posEdge == PressEdge {
		dst = append(dst, KeyEdge{a.Pos, PressEdge})
	}
	return dst
}

// Active reports whether either key is held.
func (a *AxisKeys) Active() bool {
	return a.neg.Held() || a.pos.Held()
}

// Settle overwrites the held state of both keys, used to match what was
// actually delivered after a failed press or release.
func (a *AxisKeys) Settle(negHeld, posHeld bool) {
	a.neg.Set(negHeld)
	a.pos.Set(posHeld)
}

func (a *AxisKeys) Reset() {
	a.neg.Reset()
	a.pos.Reset()
}
