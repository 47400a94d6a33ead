package gamepad

import "fmt"

// SampleKind tags the variant carried by a Sample.
type SampleKind uint8

const (
	AxisMotion SampleKind = iota
	ButtonDown
	ButtonUp
	DeviceRemoved
)

func (k SampleKind) String() string {
	switch k {
	case AxisMotion:
		return "axis"
	case ButtonDown:
		return "down"
	case ButtonUp:
		return "up"
	case DeviceRemoved:
		return "removed"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sample is one raw input event read from the bound controller during a poll.
// Channel is the axis index for AxisMotion and the button index for
// ButtonDown/ButtonUp. Value is only meaningful for AxisMotion and lies in
// [-1, 1].
type Sample struct {
	Kind    SampleKind
	Channel int
	Value   float64
}

func (s Sample) String() string {
	switch s.Kind {
	case AxisMotion:
		return fmt.Sprintf("axis %d=%.3f", s.Channel, s.Value)
	case ButtonDown, ButtonUp:
		return fmt.Sprintf("button %d %s", s.Channel, s.Kind)
	}
	return s.Kind.String()
}

// Axis builds an AxisMotion sample.
func Axis(channel int, value float64) Sample {
	return Sample{Kind: AxisMotion, Channel: channel, Value: value}
}

// Press builds a ButtonDown sample.
func Press(button int) Sample {
	return Sample{Kind: ButtonDown, Channel: button}
}

// Release builds a ButtonUp sample.
func Release(button int) Sample {
	return Sample{Kind: ButtonUp, Channel: button}
}

// Removed builds a DeviceRemoved sample.
func Removed() Sample {
	return Sample{Kind: DeviceRemoved}
}
