package gamepad

import "encoding/json"

// Control identifies one highlighted element of the status display.
type Control uint8

const (
	StickLeft Control = iota
	StickRight
	L1
	R1
	L2
	R2
	Cross
	Circle
	Square
	Triangle
	DpadUp
	DpadDown
	DpadLeft
	DpadRight
	Share
	OptionsButton
	PS
	NumControls
)

var controlNames = [NumControls]string{
	"stick_left", "stick_right",
	"l1", "r1", "l2", "r2",
	"cross", "circle", "square", "triangle",
	"dpad_up", "dpad_down", "dpad_left", "dpad_right",
	"share", "options", "ps",
}

func (c Control) String() string {
	if c < NumControls {
		return controlNames[c]
	}
	return "unknown"
}

// ButtonControl returns the display control for a button channel.
func ButtonControl(button int) (Control, bool) {
	switch button {
	case ButtonCross:
		return Cross, true
	case ButtonCircle:
		return Circle, true
	case ButtonSquare:
		return Square, true
	case ButtonTriangle:
		return Triangle, true
	case ButtonShare:
		return Share, true
	case ButtonPS:
		return PS, true
	case ButtonOptions:
		return OptionsButton, true
	case ButtonL1:
		return L1, true
	case ButtonR1:
		return R1, true
	case ButtonDpadUp:
		return DpadUp, true
	case ButtonDpadDown:
		return DpadDown, true
	case ButtonDpadLeft:
		return DpadLeft, true
	case ButtonDpadRight:
		return DpadRight, true
	}
	return 0, false
}

// Controls holds the active flag of every displayed control.
type Controls [NumControls]bool

// MarshalJSON encodes the flags as an object keyed by control name.
func (c Controls) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 32*int(NumControls))
	buf = append(buf, '{')
	for i, on := range c {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '"')
		buf = append(buf, controlNames[i]...)
		buf = append(buf, '"', ':')
		if on {
			buf = append(buf, "true"...)
		} else {
			buf = append(buf, "false"...)
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON reads the object form written by MarshalJSON. Unknown
// control names are ignored.
func (c *Controls) UnmarshalJSON(data []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = Controls{}
	for i, name := range controlNames {
		c[i] = m[name]
	}
	return nil
}

// State is what the status display shows. One State is published per tick
// at most.
type State struct {
	Connected bool     `json:"connected"`
	Running   bool     `json:"running"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Controls  Controls `json:"controls"`
}

type DeltaChanges struct {
	Connected *bool     `json:"connected,omitempty"`
	Running   *bool     `json:"running,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Status    *string   `json:"status,omitempty"`
	Controls  *Controls `json:"controls,omitempty"`
}

func (d *DeltaChanges) IsEmpty() bool {
	return d.Connected == nil &&
		d.Running == nil &&
		d.Name == nil &&
		d.Status == nil &&
		d.Controls == nil
}

func ComputeDelta(old, new_ State) *DeltaChanges {
	d := &DeltaChanges{}

	if old.Connected != new_.Connected {
		d.Connected = &new_.Connected
	}
	if old.Running != new_.Running {
		d.Running = &new_.Running
	}
	if old.Name != new_.Name {
		d.Name = &new_.Name
	}
	if old.Status != new_.Status {
		d.Status = &new_.Status
	}
	if old.Controls != new_.Controls {
		d.Controls = &new_.Controls
	}

	return d
}
