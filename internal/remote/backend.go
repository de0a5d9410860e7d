// Package remote translates discrete phone gestures into OS-level input
// events. Gesture handlers call one InputBackend interface; concrete
// backends exist for Linux (external uinput tool with a daemon/direct
// fallback) and for Windows/macOS (native automation library). All
// failures are caught, logged and swallowed at the gesture boundary:
// remote control is advisory, it must never crash the host or block the
// broadcast server.
package remote

import "fmt"

// Button identifies a mouse button in a gesture.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Valid reports whether the button name is one the protocol allows.
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

// ButtonAction is what to do with a mouse button.
type ButtonAction string

const (
	ButtonClick       ButtonAction = "click"
	ButtonDoubleClick ButtonAction = "double"
	ButtonDown        ButtonAction = "down"
	ButtonUp          ButtonAction = "up"
)

// Backend is the platform input boundary. Implementations translate
// each call into concrete OS events; the gesture handlers above them
// are platform-agnostic.
//
// Key names passed to KeyTap are the canonical names listed in keys.go;
// each backend translates them through its own table and returns a
// remote.unknown_key error for names it cannot express.
type Backend interface {
	// Name identifies the backend for logs and diagnostics.
	Name() string

	// MoveRelative displaces the pointer by (dx, dy) screen pixels.
	MoveRelative(dx, dy int) error

	// Button performs a click, double-click, press or release.
	Button(btn Button, action ButtonAction) error

	// Scroll scrolls by the given wheel deltas. Backends that have no
	// horizontal wheel ignore dx.
	Scroll(dx, dy int) error

	// TypeText inserts literal text.
	TypeText(text string) error

	// KeyTap presses one key with zero or more modifiers. Modifiers are
	// pressed first-to-last, the key is tapped, then modifiers are
	// released last-to-first.
	KeyTap(key string, modifiers []string) error
}

// Availability describes what input capability the host offers.
type Availability struct {
	// Available is true when a working backend exists.
	Available bool

	// Backend is the backend name, e.g. "ydotool" or "native".
	Backend string

	// ToolPath is the resolved external tool binary (tool backend only).
	ToolPath string

	// DaemonPath is the resolved daemon binary, if any.
	DaemonPath string

	// Detail carries a human-readable note when Available is false.
	Detail string
}

func (a Availability) String() string {
	if !a.Available {
		return fmt.Sprintf("unavailable (%s)", a.Detail)
	}
	return a.Backend
}
