package overlay

import "testing"

func TestNopToggleModeNotifiesListener(t *testing.T) {
	n := &Nop{}
	var got []bool
	n.SetModeListener(func(active bool) {
		got = append(got, active)
	})

	if active := n.ToggleMode(); !active {
		t.Fatal("first toggle should enter active mode")
	}
	if active := n.ToggleMode(); active {
		t.Fatal("second toggle should return to passive mode")
	}
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("listener saw %v, want [true false]", got)
	}
}

func TestNopEnterPassiveNotifiesOnlyOnChange(t *testing.T) {
	n := &Nop{}
	calls := 0
	n.SetModeListener(func(active bool) {
		calls++
		if active {
			t.Errorf("EnterPassive reported active=true")
		}
	})

	// Already passive: no event.
	n.EnterPassive()
	if calls != 0 {
		t.Fatalf("listener fired %d times while already passive", calls)
	}

	n.ToggleMode()
	n.EnterPassive()
	if calls != 2 {
		t.Fatalf("listener fired %d times, want 2 (toggle + enter-passive)", calls)
	}
	if n.Active() {
		t.Fatal("window still active after EnterPassive")
	}
}

func TestNopToggleWithoutListener(t *testing.T) {
	n := &Nop{}
	if !n.ToggleMode() {
		t.Fatal("toggle without a listener should still flip the flag")
	}
	n.EnterPassive()
	if n.Active() {
		t.Fatal("EnterPassive without a listener should still clear the flag")
	}
}
