package session

import "testing"

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestApplyPartialUpdate(t *testing.T) {
	s := Settings{SlowModeSeconds: 5, RemoteEnabled: true}

	s.Apply(Patch{SlowModeEnabled: boolPtr(true)})
	if !s.SlowModeEnabled {
		t.Error("SlowModeEnabled should be updated")
	}
	if s.SlowModeSeconds != 5 {
		t.Errorf("absent keys must be left unchanged, SlowModeSeconds = %d", s.SlowModeSeconds)
	}
	if !s.RemoteEnabled {
		t.Error("absent keys must be left unchanged, RemoteEnabled flipped")
	}
}

func TestApplySlowModeRangeValidation(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"below range is dropped", 0, 5},
		{"above range is dropped", 61, 5},
		{"lower bound applies", 1, 1},
		{"upper bound applies", 60, 60},
		{"mid range applies", 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{SlowModeSeconds: 5}
			s.Apply(Patch{SlowModeSeconds: intPtr(tt.value)})
			if s.SlowModeSeconds != tt.want {
				t.Errorf("SlowModeSeconds = %d, want %d", s.SlowModeSeconds, tt.want)
			}
		})
	}
}

func TestApplyFeedbackCycleTransition(t *testing.T) {
	s := Settings{}

	result := s.Apply(Patch{FeedbackEnabled: boolPtr(true)})
	if !result.FeedbackCycleStarted {
		t.Error("off->on must start a new feedback cycle")
	}

	// Re-enabling while already on is not a new cycle.
	result = s.Apply(Patch{FeedbackEnabled: boolPtr(true)})
	if result.FeedbackCycleStarted {
		t.Error("on->on must not start a new cycle")
	}

	result = s.Apply(Patch{FeedbackEnabled: boolPtr(false)})
	if result.FeedbackCycleStarted {
		t.Error("turning feedback off must not start a cycle")
	}

	result = s.Apply(Patch{FeedbackEnabled: boolPtr(true)})
	if !result.FeedbackCycleStarted {
		t.Error("off->on after a full toggle must start a new cycle")
	}
}

func TestApplyRemoteDisabledTransition(t *testing.T) {
	s := Settings{RemoteEnabled: true}

	result := s.Apply(Patch{RemoteEnabled: boolPtr(false)})
	if !result.RemoteDisabled {
		t.Error("on->off must report RemoteDisabled")
	}

	result = s.Apply(Patch{RemoteEnabled: boolPtr(false)})
	if result.RemoteDisabled {
		t.Error("off->off must not report RemoteDisabled")
	}
}
