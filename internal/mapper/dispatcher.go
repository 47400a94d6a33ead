package mapper

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/inject"
)

// ErrEmergencyStop is returned by Tick when L1, R1, L2 and R2 are held
// together. All synthesized input has been released when it is returned.
var ErrEmergencyStop = errors.New("emergency stop combo activated (L1 + R1 + L2 + R2)")

// Output is the input-injection API.
type Output interface {
	KeyDown(inject.Key) error
	KeyUp(inject.Key) error
	MouseDown(inject.MouseButton) error
	MouseUp(inject.MouseButton) error
	MouseMove(dx, dy int32) error
}

// Source yields the raw samples pending for a tick.
type Source interface {
	Drain() []gamepad.Sample
}

// Outcome is the result of one Tick.
type Outcome uint8

const (
	// Skipped means the rate limiter rejected the tick; nothing was read or emitted.
	Skipped Outcome = iota
	// Completed means every sample of the batch was dispatched.
	Completed
	// Aborted means emitting a synthesized event failed; the tick ended early.
	Aborted
	// Disconnected means the device went away; all outputs were released.
	Disconnected
	// Stopped means the emergency combo fired; all outputs were released.
	Stopped
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Disconnected:
		return "disconnected"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Settings tunes the translation. The control layout itself is fixed.
type Settings struct {
	StickDeadzone     float64
	StickSensitivity  float64
	MouseSensitivity  float64
	MouseAcceleration float64
	MouseSmoothing    float64
	MouseMinMove      float64
	MaxMouseSpeed     float64
	RateLimit         time.Duration
	TriggerThreshold  float64
}

// DefaultSettings returns the tuning the mapper ships with.
func DefaultSettings() Settings {
	return Settings{
		StickDeadzone:     0.15,
		StickSensitivity:  0.8,
		MouseSensitivity:  36,
		MouseAcceleration: 1.4,
		MouseSmoothing:    0.8,
		MouseMinMove:      0.1,
		MaxMouseSpeed:     150,
		RateLimit:         16 * time.Millisecond,
		TriggerThreshold:  0.5,
	}
}

// buttonKeys are the keys tapped when a button is pressed.
var buttonKeys = map[int]inject.Key{
	gamepad.ButtonCross:     inject.Key3,
	gamepad.ButtonSquare:    inject.Key2,
	gamepad.ButtonTriangle:  inject.Key1,
	gamepad.ButtonCircle:    inject.Key4,
	gamepad.ButtonL1:        inject.KeyEnter,
	gamepad.ButtonDpadUp:    inject.KeyI,
	gamepad.ButtonDpadDown:  inject.KeyC,
	gamepad.ButtonDpadLeft:  inject.KeyR,
	gamepad.ButtonDpadRight: inject.KeyM,
}

const (
	interactKey = inject.KeyE
	fireButton  = inject.MouseLeft
	maxButtons  = 32
)

// Dispatcher turns raw samples into synthesized keyboard and mouse events.
// It is driven by a single goroutine and is not safe for concurrent use.
//
// The latest raw value of every input is recorded separately from what was
// delivered. The debouncers track delivered state only, so an input whose
// event failed is delivered again on the next tick.
type Dispatcher struct {
	settings Settings
	out      Output
	limiter  *RateLimiter
	combo    *ComboMonitor
	debug    bool

	// raw input
	stickX, stickY float64
	pressed        [maxButtons]bool
	l2Value        float64
	r2Value        float64

	// delivered input
	moveX, moveY AxisKeys
	buttons      [maxButtons]Debouncer
	l2, r2       Debouncer
	mouse        MouseState

	keys     map[inject.Key]bool
	pointer  map[inject.MouseButton]bool
	lastTick time.Time
	edges    []KeyEdge
}

func NewDispatcher(s Settings, out Output) *Dispatcher {
	return &Dispatcher{
		settings: s,
		out:      out,
		limiter:  NewRateLimiter(s.RateLimit),
		combo:    NewComboMonitor(s.TriggerThreshold),
		moveX:    AxisKeys{Neg: inject.KeyA, Pos: inject.KeyD},
		moveY:    AxisKeys{Neg: inject.KeyW, Pos: inject.KeyS},
		keys:     make(map[inject.Key]bool),
		pointer:  make(map[inject.MouseButton]bool),
	}
}

// SetDebug enables per-event logging.
func (d *Dispatcher) SetDebug(on bool) {
	d.debug = on
}

// Controls returns the active flag of every displayed control, taken from
// the raw input.
func (d *Dispatcher) Controls() gamepad.Controls {
	var c gamepad.Controls
	for b, on := range d.pressed {
		if ctl, ok := gamepad.ButtonControl(b); ok {
			c[ctl] = on
		}
	}
	dz := d.settings.StickDeadzone
	c[gamepad.StickLeft] = math.Abs(d.stickX) > dz || math.Abs(d.stickY) > dz
	c[gamepad.StickRight] = d.mouse.Active()
	c[gamepad.L2] = d.l2Value >= d.settings.TriggerThreshold
	c[gamepad.R2] = d.r2Value >= d.settings.TriggerThreshold
	return c
}

// Held reports whether key is currently held down by the dispatcher.
func (d *Dispatcher) Held(key inject.Key) bool {
	return d.keys[key]
}

// Wait returns how long until the rate limiter accepts the next tick.
func (d *Dispatcher) Wait(now time.Time) time.Duration {
	return d.limiter.Wait(now)
}

// Tick runs one iteration of the pipeline. The emergency combo is evaluated
// over the whole batch before anything else is dispatched. Inputs left
// undelivered by an earlier failed tick are delivered first.
//
// After an injection error the rest of the batch is still recorded but no
// further events are sent; the tick reports Aborted.
func (d *Dispatcher) Tick(now time.Time, src Source) (Outcome, error) {
	if !d.limiter.Allow(now) {
		return Skipped, nil
	}
	dt := d.elapsed(now)

	batch := src.Drain()

	for _, s := range batch {
		if s.Kind == gamepad.DeviceRemoved {
			break
		}
		if d.combo.Observe(s) {
			if err := d.ReleaseAll(); err != nil {
				log.Printf("Release after emergency stop incomplete: %v", err)
			}
			return Stopped, ErrEmergencyStop
		}
	}

	failed := d.sync()

	for _, s := range batch {
		if d.debug {
			log.Printf("[DEBUG] %s", s)
		}

		if s.Kind == gamepad.DeviceRemoved {
			err := d.ReleaseAll()
			d.Reset()
			return Disconnected, err
		}
		d.record(s)
		if failed != nil {
			continue
		}
		if err := d.deliver(s); err != nil {
			failed = fmt.Errorf("dispatch %s: %w", s, err)
		}
	}
	if failed != nil {
		return Aborted, failed
	}

	if err := d.moveMouse(dt); err != nil {
		return Aborted, fmt.Errorf("mouse move: %w", err)
	}
	return Completed, nil
}

func (d *Dispatcher) elapsed(now time.Time) float64 {
	prev := d.lastTick
	d.lastTick = now
	if prev.IsZero() {
		if d.settings.RateLimit > 0 {
			return d.settings.RateLimit.Seconds()
		}
		return 1.0 / TargetFrameRate
	}
	return now.Sub(prev).Seconds()
}

// record stores the raw value carried by s.
func (d *Dispatcher) record(s gamepad.Sample) {
	switch s.Kind {
	case gamepad.ButtonDown, gamepad.ButtonUp:
		if s.Channel >= 0 && s.Channel < maxButtons {
			d.pressed[s.Channel] = s.Kind == gamepad.ButtonDown
		}
	case gamepad.AxisMotion:
		v := s.Value
		if math.IsNaN(v) {
			return
		}
		v = math.Max(-1, math.Min(1, v))
		dz := d.settings.StickDeadzone

		switch s.Channel {
		case gamepad.AxisLeftX:
			d.stickX = v
		case gamepad.AxisLeftY:
			d.stickY = v
		case gamepad.AxisRightX:
			d.mouse.SetX(v*d.settings.StickSensitivity, math.Abs(v) <= dz)
		case gamepad.AxisRightY:
			d.mouse.SetY(v*d.settings.StickSensitivity, math.Abs(v) <= dz)
		case gamepad.AxisL2:
			d.l2Value = v
		case gamepad.AxisR2:
			d.r2Value = v
		}
	}
}

// deliver sends the events the recorded value of s's channel calls for.
func (d *Dispatcher) deliver(s gamepad.Sample) error {
	switch s.Kind {
	case gamepad.ButtonDown, gamepad.ButtonUp:
		if s.Channel >= 0 && s.Channel < maxButtons {
			return d.syncButton(s.Channel)
		}
	case gamepad.AxisMotion:
		switch s.Channel {
		case gamepad.AxisLeftX:
			return d.syncStick(&d.moveX, d.stickX)
		case gamepad.AxisLeftY:
			return d.syncStick(&d.moveY, d.stickY)
		case gamepad.AxisL2:
			return d.syncL2()
		case gamepad.AxisR2:
			return d.syncR2()
		}
	}
	return nil
}

// sync brings the outputs in line with the recorded input: stuck tap keys
// are released and inputs whose events failed are delivered again.
func (d *Dispatcher) sync() error {
	for _, k := range inject.Keys {
		if d.keys[k] && !d.isMoveKey(k) {
			if err := d.release(k); err != nil {
				return fmt.Errorf("release %s: %w", k, err)
			}
		}
	}
	if err := d.syncStick(&d.moveX, d.stickX); err != nil {
		return fmt.Errorf("stick: %w", err)
	}
	if err := d.syncStick(&d.moveY, d.stickY); err != nil {
		return fmt.Errorf("stick: %w", err)
	}
	if err := d.syncL2(); err != nil {
		return fmt.Errorf("l2: %w", err)
	}
	if err := d.syncR2(); err != nil {
		return fmt.Errorf("r2: %w", err)
	}
	for b := range d.buttons {
		if err := d.syncButton(b); err != nil {
			return fmt.Errorf("button %d: %w", b, err)
		}
	}
	return nil
}

func (d *Dispatcher) isMoveKey(k inject.Key) bool {
	return k == d.moveX.Neg || k == d.moveX.Pos || k == d.moveY.Neg || k == d.moveY.Pos
}

func (d *Dispatcher) syncButton(b int) error {
	db := &d.buttons[b]
	if db.Update(d.pressed[b]) != PressEdge {
		return nil
	}
	key, ok := buttonKeys[b]
	if !ok {
		return nil
	}
	if err := d.tap(key); err != nil {
		if !d.keys[key] {
			db.Set(false)
		}
		return err
	}
	return nil
}

func (d *Dispatcher) syncStick(a *AxisKeys, v float64) error {
	a.Settle(d.keys[a.Neg], d.keys[a.Pos])
	d.edges = a.Update(v, d.settings.StickDeadzone, d.edges[:0])

	for _, e := range d.edges {
		var err error
		switch e.Edge {
		case PressEdge:
			err = d.press(e.Key)
		case ReleaseEdge:
			err = d.release(e.Key)
		}
		if err != nil {
			a.Settle(d.keys[a.Neg], d.keys[a.Pos])
			return err
		}
	}
	return nil
}

func (d *Dispatcher) syncL2() error {
	if d.l2.Update(d.l2Value >= d.settings.TriggerThreshold) != PressEdge {
		return nil
	}
	if err := d.tap(interactKey); err != nil {
		if !d.keys[interactKey] {
			d.l2.Set(false)
		}
		return err
	}
	return nil
}

func (d *Dispatcher) syncR2() error {
	d.r2.Set(d.pointer[fireButton])
	switch d.r2.Update(d.r2Value >= d.settings.TriggerThreshold) {
	case PressEdge:
		if err := d.mouseDown(fireButton); err != nil {
			d.r2.Set(false)
			return err
		}
	case ReleaseEdge:
		if err := d.mouseUp(fireButton); err != nil {
			d.r2.Set(true)
			return err
		}
	}
	return nil
}

func (d *Dispatcher) moveMouse(dt float64) error {
	st := d.settings
	d.mouse.Smooth(st.MouseSmoothing)

	dx := Shape(d.mouse.SmoothedX, st.MouseMinMove, st.MouseAcceleration, st.MouseSensitivity, dt)
	dy := Shape(d.mouse.SmoothedY, st.MouseMinMove, st.MouseAcceleration, st.MouseSensitivity, dt)
	dx, dy = Clamp(dx, dy, st.MaxMouseSpeed)

	px, py := d.mouse.Pixels(dx, dy, st.MaxMouseSpeed)
	if px == 0 && py == 0 {
		return nil
	}
	return d.out.MouseMove(px, py)
}

func (d *Dispatcher) press(key inject.Key) error {
	if d.keys[key] {
		return nil
	}
	if err := d.out.KeyDown(key); err != nil {
		return err
	}
	d.keys[key] = true
	return nil
}

func (d *Dispatcher) release(key inject.Key) error {
	if !d.keys[key] {
		return nil
	}
	if err := d.out.KeyUp(key); err != nil {
		return err
	}
	d.keys[key] = false
	return nil
}

func (d *Dispatcher) tap(key inject.Key) error {
	if err := d.release(key); err != nil {
		return err
	}
	if err := d.press(key); err != nil {
		return err
	}
	return d.release(key)
}

func (d *Dispatcher) mouseDown(b inject.MouseButton) error {
	if d.pointer[b] {
		return nil
	}
	if err := d.out.MouseDown(b); err != nil {
		return err
	}
	d.pointer[b] = true
	return nil
}

func (d *Dispatcher) mouseUp(b inject.MouseButton) error {
	if !d.pointer[b] {
		return nil
	}
	if err := d.out.MouseUp(b); err != nil {
		return err
	}
	d.pointer[b] = false
	return nil
}

// ReleaseAll lifts every held key and mouse button. It keeps going after a
// failure and returns all errors joined.
func (d *Dispatcher) ReleaseAll() error {
	var errs []error
	for _, k := range inject.Keys {
		if err := d.release(k); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", k, err))
		}
	}
	for _, b := range []inject.MouseButton{inject.MouseLeft, inject.MouseRight} {
		if err := d.mouseUp(b); err != nil {
			errs = append(errs, fmt.Errorf("release mouse %s: %w", b, err))
		}
	}
	return errors.Join(errs...)
}

// Reset clears debounce, analog and combo state, as after a disconnect.
// Held outputs are not touched; call ReleaseAll first.
func (d *Dispatcher) Reset() {
	d.moveX.Reset()
	d.moveY.Reset()
	for i := range d.buttons {
		d.buttons[i].Reset()
	}
	d.l2.Reset()
	d.r2.Reset()
	d.mouse.Reset()
	d.combo.Reset()
	d.stickX, d.stickY = 0, 0
	d.pressed = [maxButtons]bool{}
	d.l2Value, d.r2Value = 0, 0
}
