package remote

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

// fakeBackend records every call as a formatted string.
type fakeBackend struct {
	calls []string
	err   error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) MoveRelative(dx, dy int) error {
	f.calls = append(f.calls, fmt.Sprintf("move %d %d", dx, dy))
	return f.err
}

func (f *fakeBackend) Button(btn Button, action ButtonAction) error {
	f.calls = append(f.calls, fmt.Sprintf("button %s %s", btn, action))
	return f.err
}

func (f *fakeBackend) Scroll(dx, dy int) error {
	f.calls = append(f.calls, fmt.Sprintf("scroll %d %d", dx, dy))
	return f.err
}

func (f *fakeBackend) TypeText(text string) error {
	f.calls = append(f.calls, "type "+text)
	return f.err
}

func (f *fakeBackend) KeyTap(key string, modifiers []string) error {
	f.calls = append(f.calls, fmt.Sprintf("key %s %v", key, modifiers))
	return f.err
}

func TestControllerDropsWhenDisarmed(t *testing.T) {
	fb := &fakeBackend{}
	c := NewController(fb)

	c.Handle(Command{Kind: KindClick, Button: ButtonLeft})
	if len(fb.calls) != 0 {
		t.Fatalf("disarmed controller executed %v", fb.calls)
	}

	c.Arm()
	c.Handle(Command{Kind: KindClick, Button: ButtonLeft})
	if want := []string{"button left click"}; !reflect.DeepEqual(fb.calls, want) {
		t.Fatalf("calls = %v, want %v", fb.calls, want)
	}

	c.Disarm()
	c.Handle(Command{Kind: KindClick, Button: ButtonLeft})
	if len(fb.calls) != 1 {
		t.Fatalf("disarmed controller executed again: %v", fb.calls)
	}
}

func TestControllerNilBackend(t *testing.T) {
	c := NewController(nil)
	if c.Available() {
		t.Fatal("nil backend reported available")
	}
	c.Arm()
	// Must not panic.
	c.Handle(Command{Kind: KindMove, DX: 1, DY: 1})
	c.Disarm()
}

func TestControllerMoveGate(t *testing.T) {
	fb := &fakeBackend{}
	c := NewController(fb)
	c.Arm()

	c.Handle(Command{Kind: KindMove, DX: 1, DY: 0})
	c.Handle(Command{Kind: KindMove, DX: 2, DY: 0})
	c.Handle(Command{Kind: KindMove, DX: 3, DY: 0})
	if want := []string{"move 1 0"}; !reflect.DeepEqual(fb.calls, want) {
		t.Fatalf("burst moves = %v, want only the first applied: %v", fb.calls, want)
	}

	time.Sleep(moveInterval + 5*time.Millisecond)
	c.Handle(Command{Kind: KindMove, DX: 4, DY: 0})
	if want := []string{"move 1 0", "move 4 0"}; !reflect.DeepEqual(fb.calls, want) {
		t.Fatalf("moves after gate refill = %v, want %v", fb.calls, want)
	}
}

func TestControllerSwallowsBackendErrors(t *testing.T) {
	fb := &fakeBackend{err: fmt.Errorf("device gone")}
	c := NewController(fb)
	c.Arm()

	// No panic, no propagation; the gesture is just lost.
	c.Handle(Command{Kind: KindClick, Button: ButtonLeft})
	c.Handle(Command{Kind: KindTypeText, Text: "hi"})
	if len(fb.calls) != 2 {
		t.Fatalf("calls = %v, want both attempted", fb.calls)
	}
}

func TestControllerDropsInvalidGesture(t *testing.T) {
	fb := &fakeBackend{}
	c := NewController(fb)
	c.Arm()

	c.Handle(Command{Kind: KindClick, Button: "side"})
	c.Handle(Command{Kind: Kind("warp")})
	if len(fb.calls) != 0 {
		t.Fatalf("invalid gestures reached the backend: %v", fb.calls)
	}
}

func TestControllerDisarmReportsOpenDrag(t *testing.T) {
	fb := &fakeBackend{}
	c := NewController(fb)
	c.Arm()

	c.Handle(Command{Kind: KindButtonDown, Button: ButtonLeft})
	if !c.Disarm() {
		t.Fatal("Disarm during an open drag should report it")
	}
	// Bookkeeping only: no synthetic button-up reaches the backend.
	want := []string{"button left down"}
	if !reflect.DeepEqual(fb.calls, want) {
		t.Fatalf("calls = %v, want %v", fb.calls, want)
	}

	c.Arm()
	c.Handle(Command{Kind: KindButtonDown, Button: ButtonLeft})
	c.Handle(Command{Kind: KindButtonUp, Button: ButtonLeft})
	if c.Disarm() {
		t.Fatal("Disarm after a completed drag should not report one")
	}
}

func TestControllerVolumeAndMedia(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Kind: KindVolume, Action: "up"}, "key audio_vol_up []"},
		{Command{Kind: KindVolume, Action: "mute"}, "key audio_mute []"},
		{Command{Kind: KindMedia, Action: "play"}, "key audio_play []"},
		{Command{Kind: KindMedia, Action: "pause"}, "key audio_play []"},
		{Command{Kind: KindMedia, Action: "next"}, "key audio_next []"},
		{Command{Kind: KindPlayerControl, Action: "playpause"}, "key space []"},
		{Command{Kind: KindPlayerControl, Action: "fullscreen"}, "key f []"},
	}
	for _, tt := range tests {
		fb := &fakeBackend{}
		c := NewController(fb)
		c.Arm()
		c.Handle(tt.cmd)
		if len(fb.calls) != 1 || fb.calls[0] != tt.want {
			t.Errorf("%s/%s: calls = %v, want [%s]", tt.cmd.Kind, tt.cmd.Action, fb.calls, tt.want)
		}
	}
}

func TestSeekChord(t *testing.T) {
	tests := []struct {
		seconds  int
		wantKey  string
		wantMods []string
	}{
		{5, KeyRight, []string{ModShift}},
		{-5, KeyLeft, []string{ModShift}},
		{10, KeyRight, []string{ModCtrl}},
		{-30, KeyLeft, []string{ModCtrl}},
		{60, KeyRight, []string{ModCtrl, ModShift}},
		{-300, KeyLeft, []string{ModCtrl, ModShift}},
	}
	for _, tt := range tests {
		key, mods := seekChord(tt.seconds)
		if key != tt.wantKey || !reflect.DeepEqual(mods, tt.wantMods) {
			t.Errorf("seekChord(%d) = %s %v, want %s %v", tt.seconds, key, mods, tt.wantKey, tt.wantMods)
		}
	}
}

func TestControllerSeekDispatch(t *testing.T) {
	fb := &fakeBackend{}
	c := NewController(fb)
	c.Arm()

	c.Handle(Command{Kind: KindPlayerControl, Action: "seek", Value: -90})
	want := []string{"key left [ctrl shift]"}
	if !reflect.DeepEqual(fb.calls, want) {
		t.Fatalf("calls = %v, want %v", fb.calls, want)
	}
}
