// Package engine runs the poll loop that binds the controller and feeds its
// samples through the dispatcher once per tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/mapper"
)

// Config configures an Engine.
type Config struct {
	Settings     mapper.Settings
	ExpectedName string
	OnMismatch   gamepad.MismatchPolicy
	Retry        time.Duration
	// ErrorPause is how long the loop rests after a failed tick.
	ErrorPause time.Duration
	Debug      bool
	// AfterInit runs on the poll goroutine once the joystick subsystem is up.
	AfterInit func()
}

// Engine owns the controller session, the dispatcher and the state shown by
// the display. Only the goroutine running Run mutates them; other goroutines
// read the published State through Changes or CurrentState.
type Engine struct {
	cfg        Config
	manager    *gamepad.Manager
	dispatcher *mapper.Dispatcher

	cur       gamepad.State
	published atomic.Pointer[gamepad.State]
	changes   chan gamepad.State
	running   atomic.Bool
	errored   bool
}

func New(driver gamepad.Driver, out mapper.Output, cfg Config) *Engine {
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = time.Second
	}

	e := &Engine{
		cfg:     cfg,
		changes: make(chan gamepad.State, 64),
	}
	e.manager = gamepad.NewManager(driver, gamepad.Options{
		ExpectedName: cfg.ExpectedName,
		OnMismatch:   cfg.OnMismatch,
		Retry:        cfg.Retry,
		Status:       e.setStatus,
	})
	e.dispatcher = mapper.NewDispatcher(cfg.Settings, out)
	e.dispatcher.SetDebug(cfg.Debug)

	initial := gamepad.State{Status: "Initializing..."}
	e.published.Store(&initial)
	return e
}

// Changes returns the channel on which state changes are sent. At most one
// State is sent per tick; states are dropped while the channel is full.
func (e *Engine) Changes() <-chan gamepad.State {
	return e.changes
}

// CurrentState returns the last published state.
func (e *Engine) CurrentState() gamepad.State {
	return *e.published.Load()
}

// Running reports whether the poll loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run binds the controller and translates its input until ctx is done or a
// fatal stop happens. A cancelled ctx returns nil; fatal stops return
// mapper.ErrEmergencyStop, gamepad.ErrDeviceMismatch or gamepad.ErrInitFailed.
// Every held synthesized input is released before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	// SDL must be driven from one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.running.Store(true)
	e.cur.Running = true
	defer func() {
		e.running.Store(false)
		e.cur.Running = false
		e.cur.Connected = false
		e.cur.Controls = gamepad.Controls{}
		e.publish()
	}()

	if err := e.manager.Start(); err != nil {
		return e.fatal(err)
	}
	defer e.manager.Stop()
	if e.cfg.AfterInit != nil {
		e.cfg.AfterInit()
	}

	for {
		session, err := e.manager.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return e.fatal(err)
		}

		e.cur.Connected = true
		e.cur.Name = session.Name()
		e.publish()

		if err := e.loop(ctx); err != nil {
			return e.fatal(err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// loop ticks until the device goes away (nil), ctx is done (nil) or a fatal
// stop (error).
func (e *Engine) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			if err := e.dispatcher.ReleaseAll(); err != nil {
				log.Printf("Release on shutdown incomplete: %v", err)
			}
			return nil
		}

		outcome, err := e.dispatcher.Tick(time.Now(), e.manager)
		switch outcome {
		case mapper.Skipped:
			sleep(ctx, e.dispatcher.Wait(time.Now()))

		case mapper.Completed:
			e.cur.Controls = e.dispatcher.Controls()
			if e.errored {
				e.errored = false
				e.setStatus("Connected: " + e.cur.Name)
			}
			e.publish()

		case mapper.Aborted:
			log.Printf("Tick aborted: %v", err)
			e.cur.Controls = e.dispatcher.Controls()
			e.errored = true
			e.setStatus(fmt.Sprintf("Error: %v", err))
			sleep(ctx, e.cfg.ErrorPause)

		case mapper.Disconnected:
			if err != nil {
				log.Printf("Release on disconnect incomplete: %v", err)
			}
			e.cur.Connected = false
			e.cur.Controls = gamepad.Controls{}
			e.manager.Disconnect()
			return nil

		case mapper.Stopped:
			return err
		}
	}
}

func (e *Engine) fatal(err error) error {
	reason := err.Error()
	switch {
	case errors.Is(err, gamepad.ErrDeviceMismatch):
		reason = "Unsupported controller detected. Only " + e.expectedName() + " is supported."
	case errors.Is(err, mapper.ErrEmergencyStop):
		reason = "Emergency stop combo activated (L1 + R1 + L2 + R2)"
	}
	log.Printf("Fatal: %v", err)
	e.setStatus("Emergency stop: " + reason)
	return err
}

func (e *Engine) expectedName() string {
	if e.cfg.ExpectedName == "" {
		return gamepad.DefaultDeviceName
	}
	return e.cfg.ExpectedName
}

func (e *Engine) setStatus(s string) {
	if s == e.cur.Status {
		return
	}
	log.Printf("Status: %s", s)
	e.cur.Status = s
	e.publish()
}

func (e *Engine) publish() {
	if *e.published.Load() == e.cur {
		return
	}
	s := e.cur
	e.published.Store(&s)

	select {
	case e.changes <- s:
	default:
		// Drop if channel is full to avoid blocking the poll loop
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
