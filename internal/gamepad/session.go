package gamepad

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	ErrInitFailed     = errors.New("joystick subsystem init failed")
	ErrDeviceMismatch = errors.New("unsupported controller")
	ErrNoDevice       = errors.New("no controller connected")
)

// Status strings reported while acquiring and losing the controller.
const (
	StatusInitializing = "Initializing DualSense controller..."
	StatusWaiting      = "Waiting for controller connection..."
	StatusDisconnected = "Controller disconnected. Reconnecting..."
	StatusReconnected  = "Controller reconnected!"
)

// MismatchPolicy decides what happens when the bound device's name does not
// contain the expected substring.
type MismatchPolicy uint8

const (
	// MismatchStop refuses the device and stops the process.
	MismatchStop MismatchPolicy = iota
	// MismatchWarn logs a warning and maps the device anyway.
	MismatchWarn
)

func (p MismatchPolicy) String() string {
	if p == MismatchWarn {
		return "warn"
	}
	return "stop"
}

// ParseMismatchPolicy accepts "stop" or "warn".
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop", "":
		return MismatchStop, nil
	case "warn":
		return MismatchWarn, nil
	}
	return MismatchStop, fmt.Errorf("unknown mismatch policy %q", s)
}

// Driver is the platform joystick API.
type Driver interface {
	Init() error
	Quit()
	// Count refreshes enumeration and returns the number of connected joysticks.
	Count() int
	// Open binds the first connected joystick.
	Open() (Device, error)
}

// Device is a bound joystick handle.
type Device interface {
	Name() string
	// Poll appends every pending event of this device to dst.
	Poll(dst []Sample) []Sample
	Close()
}

// Options configures a Manager.
type Options struct {
	ExpectedName string
	OnMismatch   MismatchPolicy
	Retry        time.Duration
	// Status receives human readable state changes. May be nil.
	Status func(string)
}

// Session is the currently bound controller.
type Session struct {
	dev   Device
	name  string
	bound time.Time
}

func (s *Session) Name() string { return s.name }

// Manager owns controller acquisition, polling and reconnection. There is
// at most one live Session at a time.
type Manager struct {
	driver   Driver
	opts     Options
	session  *Session
	acquired int
	buf      []Sample
}

func NewManager(d Driver, opts Options) *Manager {
	if opts.ExpectedName == "" {
		opts.ExpectedName = DefaultDeviceName
	}
	if opts.Retry <= 0 {
		opts.Retry = time.Second
	}
	return &Manager{
		driver: d,
		opts:   opts,
		buf:    make([]Sample, 0, 64),
	}
}

// Start initializes the joystick subsystem.
func (m *Manager) Start() error {
	m.status(StatusInitializing)
	if err := m.driver.Init(); err != nil {
		if errors.Is(err, ErrInitFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	return nil
}

// Stop closes the session and shuts the joystick subsystem down.
func (m *Manager) Stop() {
	m.closeSession()
	m.driver.Quit()
}

// Session returns the live session or nil.
func (m *Manager) Session() *Session {
	return m.session
}

// Acquire blocks until a controller is bound or ctx is done. While no device
// is present it retries every Options.Retry. A device whose name does not
// match is refused with ErrDeviceMismatch under MismatchStop.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if m.session != nil {
		return m.session, nil
	}

	waiting := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if m.driver.Count() > 0 {
			dev, err := m.driver.Open()
			if err == nil {
				return m.bind(dev)
			}
			log.Printf("Failed to open controller: %v", err)
		}

		if !waiting {
			m.status(StatusWaiting)
			waiting = true
		}

		t := time.NewTimer(m.opts.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (m *Manager) bind(dev Device) (*Session, error) {
	name := dev.Name()
	if !strings.Contains(name, m.opts.ExpectedName) {
		if m.opts.OnMismatch == MismatchStop {
			dev.Close()
			return nil, fmt.Errorf("%w: %q (expected %s)", ErrDeviceMismatch, name, m.opts.ExpectedName)
		}
		log.Printf("Warning: controller %q is not a %s, mapping it anyway", name, m.opts.ExpectedName)
	}

	m.session = &Session{dev: dev, name: name, bound: time.Now()}
	m.acquired++
	if m.acquired > 1 {
		m.status(StatusReconnected)
	} else {
		m.status("Connected: " + name)
	}
	return m.session, nil
}

// Drain returns every sample read from the bound device since the last call.
// The returned slice is reused by the next call.
func (m *Manager) Drain() []Sample {
	m.buf = m.buf[:0]
	if m.session == nil {
		return m.buf
	}
	m.buf = m.session.dev.Poll(m.buf)
	return m.buf
}

// Disconnect drops the live session after the device went away. The next
// Acquire waits for a device again and re-validates its identity.
func (m *Manager) Disconnect() {
	if m.session == nil {
		return
	}
	log.Printf("Controller disconnected after %s: %s", time.Since(m.session.bound).Round(time.Second), m.session.name)
	m.closeSession()
	m.status(StatusDisconnected)
}

func (m *Manager) closeSession() {
	if m.session != nil {
		m.session.dev.Close()
		m.session = nil
	}
}

func (m *Manager) status(s string) {
	if m.opts.Status != nil {
		m.opts.Status(s)
	}
}
