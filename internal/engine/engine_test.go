package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/inject"
	"github.com/soar/dsmapper/internal/mapper"
)

type scriptedDevice struct {
	name    string
	batches [][]gamepad.Sample
	onEmpty func()
}

func (d *scriptedDevice) Name() string { return d.name }
func (d *scriptedDevice) Close()       {}

func (d *scriptedDevice) Poll(dst []gamepad.Sample) []gamepad.Sample {
	if len(d.batches) == 0 {
		if d.onEmpty != nil {
			d.onEmpty()
		}
		return dst
	}
	dst = append(dst, d.batches[0]...)
	d.batches = d.batches[1:]
	return dst
}

type scriptedDriver struct {
	devices []*scriptedDevice
	initErr error
}

func (d *scriptedDriver) Init() error { return d.initErr }
func (d *scriptedDriver) Quit()       {}
func (d *scriptedDriver) Count() int  { return len(d.devices) }

func (d *scriptedDriver) Open() (gamepad.Device, error) {
	if len(d.devices) == 0 {
		return nil, gamepad.ErrNoDevice
	}
	dev := d.devices[0]
	d.devices = d.devices[1:]
	return dev, nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) KeyDown(k inject.Key) error           { return r.add("down " + string(k)) }
func (r *recorder) KeyUp(k inject.Key) error             { return r.add("up " + string(k)) }
func (r *recorder) MouseDown(b inject.MouseButton) error { return r.add("mouse down " + b.String()) }
func (r *recorder) MouseUp(b inject.MouseButton) error   { return r.add("mouse up " + b.String()) }
func (r *recorder) MouseMove(dx, dy int32) error         { return nil }

func testConfig() Config {
	s := mapper.DefaultSettings()
	s.RateLimit = time.Millisecond
	return Config{
		Settings:   s,
		Retry:      time.Millisecond,
		ErrorPause: time.Millisecond,
	}
}

func statuses(e *Engine) []string {
	var out []string
	for {
		select {
		case s := <-e.Changes():
			if len(out) == 0 || out[len(out)-1] != s.Status {
				out = append(out, s.Status)
			}
		default:
			return out
		}
	}
}

func TestEmergencyStop(t *testing.T) {
	drv := &scriptedDriver{devices: []*scriptedDevice{{
		name: "DualSense Wireless Controller",
		batches: [][]gamepad.Sample{
			{gamepad.Axis(gamepad.AxisLeftX, -0.5), gamepad.Press(gamepad.ButtonL1), gamepad.Press(gamepad.ButtonR1)},
			{gamepad.Axis(gamepad.AxisL2, 0.9), gamepad.Axis(gamepad.AxisR2, 0.9)},
		},
	}}}
	out := &recorder{}
	e := New(drv, out, testConfig())

	err := e.Run(context.Background())
	require.ErrorIs(t, err, mapper.ErrEmergencyStop)

	assert.Equal(t, []string{"down a", "down enter", "up enter", "up a"}, out.events)
	st := e.CurrentState()
	assert.Equal(t, "Emergency stop: Emergency stop combo activated (L1 + R1 + L2 + R2)", st.Status)
	assert.False(t, st.Running)
	assert.False(t, st.Connected)
	assert.False(t, e.Running())
}

func TestDeviceMismatchIsFatal(t *testing.T) {
	drv := &scriptedDriver{devices: []*scriptedDevice{{name: "Xbox Wireless Controller"}}}
	e := New(drv, &recorder{}, testConfig())

	err := e.Run(context.Background())
	require.ErrorIs(t, err, gamepad.ErrDeviceMismatch)
	assert.Equal(t, "Emergency stop: Unsupported controller detected. Only DualSense is supported.", e.CurrentState().Status)
}

func TestDeviceMismatchWarn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := &scriptedDriver{devices: []*scriptedDevice{{
		name:    "Xbox Wireless Controller",
		batches: [][]gamepad.Sample{{gamepad.Press(gamepad.ButtonCross)}},
		onEmpty: cancel,
	}}}
	out := &recorder{}
	cfg := testConfig()
	cfg.OnMismatch = gamepad.MismatchWarn
	e := New(drv, out, cfg)

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, []string{"down 3", "up 3"}, out.events)
}

func TestReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := &scriptedDriver{devices: []*scriptedDevice{
		{
			name: "DualSense Wireless Controller",
			batches: [][]gamepad.Sample{
				{gamepad.Axis(gamepad.AxisLeftX, -0.5), gamepad.Axis(gamepad.AxisLeftY, -0.5)},
				{gamepad.Removed()},
			},
		},
		{
			name:    "DualSense Wireless Controller",
			batches: [][]gamepad.Sample{{gamepad.Press(gamepad.ButtonCross)}},
			onEmpty: cancel,
		},
	}}
	out := &recorder{}
	e := New(drv, out, testConfig())

	require.NoError(t, e.Run(ctx))

	assert.Equal(t, []string{"down a", "down w", "up w", "up a", "down 3", "up 3"}, out.events)
	assert.Equal(t, []string{
		gamepad.StatusInitializing,
		"Connected: DualSense Wireless Controller",
		gamepad.StatusDisconnected,
		gamepad.StatusReconnected,
	}, statuses(e))
}

func TestCancelReleasesHeldInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := &scriptedDriver{devices: []*scriptedDevice{{
		name: "DualSense",
		batches: [][]gamepad.Sample{
			{gamepad.Axis(gamepad.AxisLeftX, 0.9), gamepad.Axis(gamepad.AxisR2, 1)},
		},
		onEmpty: cancel,
	}}}
	out := &recorder{}
	e := New(drv, out, testConfig())

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, []string{"down d", "mouse down left", "up d", "mouse up left"}, out.events)
}

func TestCancelWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	drv := &scriptedDriver{}
	e := New(drv, &recorder{}, testConfig())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		return e.CurrentState().Status == gamepad.StatusWaiting
	}, 2*time.Second, time.Millisecond)
	assert.True(t, e.Running())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, e.Running())
}

func TestInitFailure(t *testing.T) {
	drv := &scriptedDriver{initErr: errors.New("no joystick support")}
	e := New(drv, &recorder{}, testConfig())

	err := e.Run(context.Background())
	assert.ErrorIs(t, err, gamepad.ErrInitFailed)
}

func TestAfterInitRunsOnlyOnSuccessfulInit(t *testing.T) {
	calls := 0
	cfg := testConfig()
	cfg.AfterInit = func() { calls++ }

	e := New(&scriptedDriver{initErr: errors.New("boom")}, &recorder{}, cfg)
	require.Error(t, e.Run(context.Background()))
	assert.Equal(t, 0, calls)

	e = New(&scriptedDriver{devices: []*scriptedDevice{{name: "Xbox"}}}, &recorder{}, cfg)
	require.ErrorIs(t, e.Run(context.Background()), gamepad.ErrDeviceMismatch)
	assert.Equal(t, 1, calls)
}
