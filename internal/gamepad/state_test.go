package gamepad

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDelta(t *testing.T) {
	old := State{Connected: true, Name: "DualSense", Status: "Connected: DualSense"}
	new_ := old
	assert.True(t, ComputeDelta(old, new_).IsEmpty())

	new_.Controls[Cross] = true
	d := ComputeDelta(old, new_)
	require.NotNil(t, d.Controls)
	assert.True(t, d.Controls[Cross])
	assert.Nil(t, d.Status)
	assert.Nil(t, d.Connected)
}

func TestControlsJSON(t *testing.T) {
	var c Controls
	c[StickLeft] = true
	c[PS] = true

	data, err := json.Marshal(State{Controls: c})
	require.NoError(t, err)

	var decoded struct {
		Controls map[string]bool `json:"controls"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Controls, int(NumControls))
	assert.True(t, decoded.Controls["stick_left"])
	assert.True(t, decoded.Controls["ps"])
	assert.False(t, decoded.Controls["r2"])
}

func TestControlsJSONDecode(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ok","controls":{"r2":true,"dpad_up":true,"turbo":true}}`), &s))
	assert.Equal(t, "ok", s.Status)
	assert.True(t, s.Controls[R2])
	assert.True(t, s.Controls[DpadUp])
	assert.False(t, s.Controls[L2])

	assert.Error(t, json.Unmarshal([]byte(`{"controls":[true]}`), &s))
}

func TestButtonControl(t *testing.T) {
	c, ok := ButtonControl(ButtonDpadRight)
	assert.True(t, ok)
	assert.Equal(t, DpadRight, c)

	c, ok = ButtonControl(ButtonOptions)
	assert.True(t, ok)
	assert.Equal(t, OptionsButton, c)
	assert.Equal(t, "options", c.String())

	_, ok = ButtonControl(ButtonL3)
	assert.False(t, ok)
}

func TestHatSamples(t *testing.T) {
	got := HatSamples(0, hatUp|hatRight, nil)
	assert.Equal(t, []Sample{Press(ButtonDpadUp), Press(ButtonDpadRight)}, got)

	got = HatSamples(hatUp|hatRight, hatRight, nil)
	assert.Equal(t, []Sample{Release(ButtonDpadUp)}, got)

	assert.Empty(t, HatSamples(hatLeft, hatLeft, nil))
}

func TestNormalizeAxis(t *testing.T) {
	assert.Equal(t, 1.0, NormalizeAxis(32767))
	assert.Equal(t, -1.0, NormalizeAxis(-32768))
	assert.Equal(t, 0.0, NormalizeAxis(0))
}
