// Package overlay defines the boundary to the desktop overlay window.
// The host consumes the window through two calls (toggle interaction
// mode, enter passive mode) and one event (mode changed); everything
// about window creation, transparency and focus handling lives on the
// other side of this interface.
package overlay

import "log"

// Window is the overlay collaborator.
type Window interface {
	// ToggleMode flips between active (click-through off) and passive
	// (click-through on) and returns the resulting active flag.
	ToggleMode() (active bool)

	// EnterPassive forces the window into passive mode. Used when a
	// remote-control admin disconnects so the host is never left with
	// input passthrough enabled and no way to reach it.
	EnterPassive()

	// ShowMessage hands an accepted chat message to the overlay for
	// on-screen display.
	ShowMessage(id int64, user, text string)

	// Active reports whether the window is currently in active mode.
	Active() bool

	// SetModeListener registers the listener invoked on every mode
	// change, whichever side initiated it. At most one listener;
	// registering replaces the previous one.
	SetModeListener(ModeListener)
}

// ModeListener receives the mode-changed event from the window.
type ModeListener func(active bool)

// Nop is a Window that does nothing beyond tracking the mode flag.
// Used in headless runs and tests.
type Nop struct {
	active   bool
	listener ModeListener
}

// ToggleMode implements Window.
func (n *Nop) ToggleMode() bool {
	n.active = !n.active
	log.Printf("overlay: mode toggled (active=%v)", n.active)
	if n.listener != nil {
		n.listener(n.active)
	}
	return n.active
}

// EnterPassive implements Window.
func (n *Nop) EnterPassive() {
	if !n.active {
		return
	}
	n.active = false
	if n.listener != nil {
		n.listener(false)
	}
}

// ShowMessage implements Window.
func (n *Nop) ShowMessage(id int64, user, text string) {}

// Active reports the current mode flag.
func (n *Nop) Active() bool {
	return n.active
}

// SetModeListener implements Window.
func (n *Nop) SetModeListener(l ModeListener) {
	n.listener = l
}
