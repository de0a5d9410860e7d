package remote

import (
	"fmt"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// Kind discriminates the gesture command union.
type Kind string

const (
	KindMove          Kind = "move"
	KindClick         Kind = "click"
	KindDoubleClick   Kind = "double-click"
	KindButtonDown    Kind = "button-down"
	KindButtonUp      Kind = "button-up"
	KindScroll        Kind = "scroll"
	KindTypeText      Kind = "type-text"
	KindKeyPress      Kind = "key-press"
	KindVolume        Kind = "volume"
	KindMedia         Kind = "media"
	KindPlayerControl Kind = "player-control"
)

// Command is one gesture, decoded from a remote-* protocol frame.
// Fields are populated per kind; unused fields are zero.
type Command struct {
	Kind Kind

	// DX, DY are deltas for move and scroll.
	DX, DY int

	// Button is set for click/double-click/button-down/button-up.
	Button Button

	// Text is set for type-text.
	Text string

	// Key and Modifiers are set for key-press.
	Key       string
	Modifiers []string

	// Action is set for volume ("up", "down", "mute"), media ("play",
	// "pause", "stop", "next", "prev") and player-control ("seek",
	// "fullscreen", "playpause").
	Action string

	// Value is the seek offset in seconds for player-control "seek";
	// negative seeks backwards.
	Value int
}

// Validate checks the fields a command's kind requires.
func (c Command) Validate() error {
	switch c.Kind {
	case KindMove, KindScroll, KindTypeText:
		return nil
	case KindClick, KindDoubleClick, KindButtonDown, KindButtonUp:
		if !c.Button.Valid() {
			return apperrors.New(apperrors.CodeRemoteBadGesture,
				fmt.Sprintf("invalid mouse button %q", c.Button))
		}
		return nil
	case KindKeyPress:
		if c.Key == "" {
			return apperrors.New(apperrors.CodeRemoteBadGesture, "key-press without a key name")
		}
		return nil
	case KindVolume:
		if _, ok := volumeKeys[c.Action]; !ok {
			return apperrors.New(apperrors.CodeRemoteBadGesture,
				fmt.Sprintf("unknown volume action %q", c.Action))
		}
		return nil
	case KindMedia:
		if _, ok := mediaKeys[c.Action]; !ok {
			return apperrors.New(apperrors.CodeRemoteBadGesture,
				fmt.Sprintf("unknown media action %q", c.Action))
		}
		return nil
	case KindPlayerControl:
		switch c.Action {
		case "seek", "fullscreen", "playpause":
			return nil
		}
		return apperrors.New(apperrors.CodeRemoteBadGesture,
			fmt.Sprintf("unknown player action %q", c.Action))
	}
	return apperrors.New(apperrors.CodeRemoteBadGesture,
		fmt.Sprintf("unknown gesture kind %q", c.Kind))
}
