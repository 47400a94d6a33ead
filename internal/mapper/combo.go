package mapper

import "github.com/soar/dsmapper/internal/gamepad"

const (
	comboL1 = iota
	comboR1
	comboL2
	comboR2
	comboChannels
)

var comboNames = [comboChannels]string{"L1", "R1", "L2", "R2"}

// ComboMonitor watches L1, R1 and both triggers and reports when all four
// are active at the same time.
type ComboMonitor struct {
	threshold float64
	armed     [comboChannels]bool
	fired     bool
}

func NewComboMonitor(threshold float64) *ComboMonitor {
	return &ComboMonitor{threshold: threshold}
}

// Observe updates the armed flags from s. It returns true only on the update
// that completes the combo; it fires again only after a channel was released.
func (c *ComboMonitor) Observe(s gamepad.Sample) bool {
	switch s.Kind {
	case gamepad.ButtonDown, gamepad.ButtonUp:
		down := s.Kind == gamepad.ButtonDown
		switch s.Channel {
		case gamepad.ButtonL1:
			c.armed[comboL1] = down
		case gamepad.ButtonR1:
			c.armed[comboR1] = down
		}
	case gamepad.AxisMotion:
		switch s.Channel {
		case gamepad.AxisL2:
			c.armed[comboL2] = s.Value >= c.threshold
		case gamepad.AxisR2:
			c.armed[comboR2] = s.Value >= c.threshold
		}
	}

	if !c.Active() {
		c.fired = false
		return false
	}
	if c.fired {
		return false
	}
	c.fired = true
	return true
}

// Active reports whether all four channels are armed.
func (c *ComboMonitor) Active() bool {
	for _, on := range c.armed {
		if !on {
			return false
		}
	}
	return true
}

// Armed returns the names of the channels currently armed.
func (c *ComboMonitor) Armed() []string {
	var names []string
	for i, on := range c.armed {
		if on {
			names = append(names, comboNames[i])
		}
	}
	return names
}

func (c *ComboMonitor) Reset() {
	c.armed = [comboChannels]bool{}
	c.fired = false
}
