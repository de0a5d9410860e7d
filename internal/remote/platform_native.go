//go:build darwin || windows

package remote

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// NativeBackend drives input through the in-process automation library.
// No external tool, no daemon, no fallback modes.
type NativeBackend struct{}

// DetectBackend reports the native library, which is always available
// on these platforms.
func DetectBackend() (Backend, Availability) {
	return NativeBackend{}, Availability{
		Available: true,
		Backend:   "robotgo",
		Detail:    runtime.GOOS,
	}
}

// Name implements Backend.
func (NativeBackend) Name() string { return "robotgo" }

// MoveRelative implements Backend.
func (NativeBackend) MoveRelative(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

// Button implements Backend.
func (NativeBackend) Button(btn Button, action ButtonAction) error {
	if !btn.Valid() {
		return apperrors.New(apperrors.CodeRemoteBadGesture, fmt.Sprintf("invalid mouse button %q", btn))
	}
	switch action {
	case ButtonClick:
		robotgo.Click(string(btn), false)
	case ButtonDoubleClick:
		robotgo.Click(string(btn), true)
	case ButtonDown:
		robotgo.Toggle(string(btn), "down")
	case ButtonUp:
		robotgo.Toggle(string(btn), "up")
	default:
		return apperrors.New(apperrors.CodeRemoteBadGesture, fmt.Sprintf("invalid button action %q", action))
	}
	return nil
}

// Scroll implements Backend. The native library takes both axes, so
// horizontal scroll is honored here.
func (NativeBackend) Scroll(dx, dy int) error {
	robotgo.Scroll(dx, dy)
	return nil
}

// TypeText implements Backend. The library does not shell out, but the
// text is sanitized anyway so both backends type the same characters.
func (NativeBackend) TypeText(text string) error {
	clean := SanitizeTypedText(text)
	if clean == "" {
		return nil
	}
	robotgo.TypeStr(clean)
	return nil
}

// KeyTap implements Backend. The canonical key names are the library's
// own, so no translation table is needed.
func (NativeBackend) KeyTap(key string, modifiers []string) error {
	args := make([]interface{}, len(modifiers))
	for i, mod := range modifiers {
		args[i] = mod
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteExecFailed, "key tap "+key, err)
	}
	return nil
}
