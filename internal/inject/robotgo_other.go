//go:build !linux

package inject

import (
	"fmt"
	"log"

	"github.com/go-vgo/robotgo"
)

// DefaultDevice is unused outside Linux.
const DefaultDevice = ""

// Injector sends input through the OS input APIs via robotgo.
type Injector struct {
	closed bool
}

// Open returns an injector; path is ignored on this platform.
func Open(path string) (*Injector, error) {
	log.Println("Using native input injection")
	return &Injector{}, nil
}

func (i *Injector) check(k Key) error {
	if i.closed {
		return ErrClosed
	}
	for _, known := range Keys {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, k)
}

func (i *Injector) KeyDown(k Key) error {
	if err := i.check(k); err != nil {
		return err
	}
	return robotgo.KeyDown(string(k))
}

func (i *Injector) KeyUp(k Key) error {
	if err := i.check(k); err != nil {
		return err
	}
	return robotgo.KeyUp(string(k))
}

func (i *Injector) MouseDown(b MouseButton) error {
	if i.closed {
		return ErrClosed
	}
	return robotgo.Toggle(b.String())
}

func (i *Injector) MouseUp(b MouseButton) error {
	if i.closed {
		return ErrClosed
	}
	return robotgo.Toggle(b.String(), "up")
}

func (i *Injector) MouseMove(dx, dy int32) error {
	if i.closed {
		return ErrClosed
	}
	robotgo.MoveRelative(int(dx), int(dy))
	return nil
}

func (i *Injector) Close() error {
	i.closed = true
	return nil
}
