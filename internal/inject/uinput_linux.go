package inject

import (
	"errors"
	"fmt"
	"log"

	"github.com/bendahl/uinput"
	"golang.org/x/sys/unix"
)

// DefaultDevice is the uinput node virtual devices are created on.
const DefaultDevice = "/dev/uinput"

var keyCodes = map[Key]int{
	KeyW:     uinput.KeyW,
	KeyA:     uinput.KeyA,
	KeyS:     uinput.KeyS,
	KeyD:     uinput.KeyD,
	KeyE:     uinput.KeyE,
	Key1:     uinput.Key1,
	Key2:     uinput.Key2,
	Key3:     uinput.Key3,
	Key4:     uinput.Key4,
	KeyEnter: uinput.KeyEnter,
	KeyI:     uinput.KeyI,
	KeyC:     uinput.KeyC,
	KeyR:     uinput.KeyR,
	KeyM:     uinput.KeyM,
}

// Injector drives a virtual keyboard and a virtual mouse created through
// uinput.
type Injector struct {
	keyboard uinput.Keyboard
	mouse    uinput.Mouse
}

// Open creates the virtual devices on the given uinput node.
func Open(path string) (*Injector, error) {
	if path == "" {
		path = DefaultDevice
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%s is not writable (is the uinput module loaded and the user in the input group?): %w", path, err)
	}

	kb, err := uinput.CreateKeyboard(path, []byte("dsmapper-keyboard"))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	mouse, err := uinput.CreateMouse(path, []byte("dsmapper-mouse"))
	if err != nil {
		_ = kb.Close()
		return nil, fmt.Errorf("create virtual mouse: %w", err)
	}

	log.Printf("Virtual keyboard and mouse created on %s", path)
	return &Injector{keyboard: kb, mouse: mouse}, nil
}

func (i *Injector) code(k Key) (int, error) {
	if i.keyboard == nil {
		return 0, ErrClosed
	}
	c, ok := keyCodes[k]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	return c, nil
}

func (i *Injector) KeyDown(k Key) error {
	c, err := i.code(k)
	if err != nil {
		return err
	}
	return i.keyboard.KeyDown(c)
}

func (i *Injector) KeyUp(k Key) error {
	c, err := i.code(k)
	if err != nil {
		return err
	}
	return i.keyboard.KeyUp(c)
}

func (i *Injector) MouseDown(b MouseButton) error {
	if i.mouse == nil {
		return ErrClosed
	}
	if b == MouseRight {
		return i.mouse.RightPress()
	}
	return i.mouse.LeftPress()
}

func (i *Injector) MouseUp(b MouseButton) error {
	if i.mouse == nil {
		return ErrClosed
	}
	if b == MouseRight {
		return i.mouse.RightRelease()
	}
	return i.mouse.LeftRelease()
}

func (i *Injector) MouseMove(dx, dy int32) error {
	if i.mouse == nil {
		return ErrClosed
	}
	return i.mouse.Move(dx, dy)
}

// Close destroys the virtual devices.
func (i *Injector) Close() error {
	var errs []error
	if i.keyboard != nil {
		errs = append(errs, i.keyboard.Close())
		i.keyboard = nil
	}
	if i.mouse != nil {
		errs = append(errs, i.mouse.Close())
		i.mouse = nil
	}
	return errors.Join(errs...)
}
