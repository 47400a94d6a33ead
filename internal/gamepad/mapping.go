package gamepad

import "math"

// Axis channels as reported by the joystick API for a DualSense.
const (
	AxisLeftX  = 0
	AxisLeftY  = 1
	AxisRightX = 2
	AxisRightY = 3
	AxisL2     = 4
	AxisR2     = 5
)

// Button channels as reported by the joystick API for a DualSense.
const (
	ButtonCross     = 0
	ButtonCircle    = 1
	ButtonSquare    = 2
	ButtonTriangle  = 3
	ButtonShare     = 4
	ButtonPS        = 5
	ButtonOptions   = 6
	ButtonL3        = 7
	ButtonR3        = 8
	ButtonL1        = 9
	ButtonR1        = 10
	ButtonDpadUp    = 11
	ButtonDpadDown  = 12
	ButtonDpadLeft  = 13
	ButtonDpadRight = 14
)

// DefaultDeviceName is the substring a bound device's name must contain.
const DefaultDeviceName = "DualSense"

const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// hatButtons maps hat direction bits to the D-pad button channels so that
// drivers reporting the D-pad as a hat feed the same samples as drivers
// reporting it as buttons.
var hatButtons = []struct {
	bit    uint8
	button int
}{
	{hatUp, ButtonDpadUp},
	{hatDown, ButtonDpadDown},
	{hatLeft, ButtonDpadLeft},
	{hatRight, ButtonDpadRight},
}

// HatSamples converts a hat transition into button samples for the D-pad channels.
func HatSamples(prev, cur uint8, dst []Sample) []Sample {
	for _, hb := range hatButtons {
		was := prev&hb.bit != 0
		is := cur&hb.bit != 0
		switch {
		case is && !was:
			dst = append(dst, Sample{Kind: ButtonDown, Channel: hb.button})
		case was && !is:
			dst = append(dst, Sample{Kind: ButtonUp, Channel: hb.button})
		}
	}
	return dst
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}
