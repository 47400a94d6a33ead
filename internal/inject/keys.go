// Package inject synthesizes keyboard and mouse input as if it came from
// physical devices.
package inject

import "errors"

// Key is a symbolic key name.
type Key string

const (
	KeyW     Key = "w"
	KeyA     Key = "a"
	KeyS     Key = "s"
	KeyD     Key = "d"
	KeyE     Key = "e"
	Key1     Key = "1"
	Key2     Key = "2"
	Key3     Key = "3"
	Key4     Key = "4"
	KeyEnter Key = "enter"
	KeyI     Key = "i"
	KeyC     Key = "c"
	KeyR     Key = "r"
	KeyM     Key = "m"
)

// Keys lists every key the mapper can synthesize.
var Keys = []Key{KeyW, KeyA, KeyS, KeyD, KeyE, Key1, Key2, Key3, Key4, KeyEnter, KeyI, KeyC, KeyR, KeyM}

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseRight
)

func (b MouseButton) String() string {
	if b == MouseRight {
		return "right"
	}
	return "left"
}

var (
	ErrUnknownKey = errors.New("unknown key")
	ErrClosed     = errors.New("injector closed")
)
