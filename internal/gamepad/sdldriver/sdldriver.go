// Package sdldriver implements gamepad.Driver on the SDL3 joystick API.
package sdldriver

import (
	"fmt"
	"log"

	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/soar/dsmapper/internal/gamepad"
)

var _ gamepad.Driver = (*Driver)(nil)

// Driver reads controllers through the SDL3 joystick API. All calls must
// happen on the goroutine that called Init, locked to its OS thread.
type Driver struct {
	Debug bool
}

func New(debug bool) *Driver {
	return &Driver{Debug: debug}
}

func (d *Driver) Init() error {
	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("%w: %s", gamepad.ErrInitFailed, sdl.GetError())
	}
	log.Println("SDL3 Joystick subsystem initialized")
	return nil
}

func (d *Driver) Quit() {
	sdl.Quit()
}

// Count pumps the event queue so hot-plugged devices show up, discarding
// events of devices that are not bound.
func (d *Driver) Count() int {
	var event sdl.Event
	for sdl.PollEvent(&event) {
	}
	return len(sdl.GetJoysticks())
}

func (d *Driver) Open() (gamepad.Device, error) {
	ids := sdl.GetJoysticks()
	if len(ids) == 0 {
		return nil, gamepad.ErrNoDevice
	}

	js := sdl.OpenJoystick(ids[0])
	if js == nil {
		return nil, fmt.Errorf("open joystick %d: %s", ids[0], sdl.GetError())
	}

	dev := &sdlDevice{
		joystick: js,
		id:       sdl.GetJoystickID(js),
		name:     sdl.GetJoystickName(js),
		debug:    d.Debug,
	}

	log.Printf("Joystick opened: %s (VID=%04X PID=%04X) axes=%d buttons=%d hats=%d",
		dev.name, sdl.GetJoystickVendor(js), sdl.GetJoystickProduct(js),
		sdl.GetNumJoystickAxes(js), sdl.GetNumJoystickButtons(js), sdl.GetNumJoystickHats(js))

	return dev, nil
}

type sdlDevice struct {
	joystick *sdl.Joystick
	id       sdl.JoystickID
	name     string
	hat      uint8
	debug    bool
}

func (d *sdlDevice) Name() string {
	return d.name
}

func (d *sdlDevice) Close() {
	if d.joystick != nil {
		sdl.CloseJoystick(d.joystick)
		d.joystick = nil
	}
}

func (d *sdlDevice) Poll(dst []gamepad.Sample) []gamepad.Sample {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickRemoved:
			if event.JDevice().Which == d.id {
				dst = append(dst, gamepad.Removed())
			}

		case sdl.EventJoystickButtonDown:
			be := event.JButton()
			if be.Which != d.id {
				continue
			}
			if d.debug {
				log.Printf("[DEBUG] Button DOWN: index=%d", be.Button)
			}
			dst = append(dst, gamepad.Press(int(be.Button)))

		case sdl.EventJoystickButtonUp:
			be := event.JButton()
			if be.Which != d.id {
				continue
			}
			if d.debug {
				log.Printf("[DEBUG] Button UP:   index=%d", be.Button)
			}
			dst = append(dst, gamepad.Release(int(be.Button)))

		case sdl.EventJoystickAxisMotion:
			ae := event.JAxis()
			if ae.Which != d.id {
				continue
			}
			if d.debug && (ae.Value > 8000 || ae.Value < -8000) {
				log.Printf("[DEBUG] Axis: index=%d value=%d", ae.Axis, ae.Value)
			}
			dst = append(dst, gamepad.Axis(int(ae.Axis), gamepad.NormalizeAxis(ae.Value)))

		case sdl.EventJoystickHatMotion:
			he := event.JHat()
			if he.Which != d.id || he.Hat != 0 {
				continue
			}
			if d.debug {
				log.Printf("[DEBUG] Hat: value=0x%02X", he.Value)
			}
			value := uint8(he.Value)
			dst = gamepad.HatSamples(d.hat, value, dst)
			d.hat = value
		}
	}
	return dst
}
