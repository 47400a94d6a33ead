package mapper

import "math"

// MouseState is the right stick's contribution to pointer motion. Targets are
// the latest deflections outside the deadzone; the smoothed values chase them
// with a decayed average once per tick.
type MouseState struct {
	TargetX, TargetY     float64
	SmoothedX, SmoothedY float64

	carryX, carryY float64
}

// SetX records a right stick X sample. Re-entering the deadzone zeroes the axis.
func (m *MouseState) SetX(target float64, inDeadzone bool) {
	if inDeadzone {
		m.TargetX, m.SmoothedX, m.carryX = 0, 0, 0
		return
	}
	m.TargetX = target
}

// SetY records a right stick Y sample. Re-entering the deadzone zeroes the axis.
func (m *MouseState) SetY(target float64, inDeadzone bool) {
	if inDeadzone {
		m.TargetY, m.SmoothedY, m.carryY = 0, 0, 0
		return
	}
	m.TargetY = target
}

// Smooth advances the decayed average by one tick.
func (m *MouseState) Smooth(factor float64) {
	m.SmoothedX += (m.TargetX - m.SmoothedX) * factor
	m.SmoothedY += (m.TargetY - m.SmoothedY) * factor
}

// Active reports whether the stick is deflected.
func (m *MouseState) Active() bool {
	return m.TargetX != 0 || m.TargetY != 0
}

func (m *MouseState) Reset() {
	*m = MouseState{}
}

// Pixels converts a clamped delta into whole pixels, carrying the fraction
// into the next tick. The result never exceeds max on either axis.
func (m *MouseState) Pixels(dx, dy, max float64) (int32, int32) {
	var px, py int32
	px, m.carryX = whole(dx+m.carryX, max)
	py, m.carryY = whole(dy+m.carryY, max)
	return px, py
}

func whole(v, max float64) (int32, float64) {
	w := math.Trunc(v)
	if math.Abs(w) >= max {
		return int32(math.Copysign(math.Floor(max), w)), 0
	}
	return int32(w), v - w
}

// ClampAxis limits v to [-max, max] keeping its sign.
func ClampAxis(v, max float64) float64 {
	if math.Abs(v) > max {
		return math.Copysign(max, v)
	}
	return v
}

// Clamp limits a per-tick delta on both axes independently.
func Clamp(dx, dy, max float64) (float64, float64) {
	return ClampAxis(dx, max), ClampAxis(dy, max)
}
