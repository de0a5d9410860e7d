package session

// Slow-mode cooldown bounds, in seconds. Values outside this range in an
// admin-settings frame are ignored (the previous value is kept).
const (
	SlowModeMinSeconds = 1
	SlowModeMaxSeconds = 60
)

// Settings is the mutable per-session configuration controlled by admins.
// A full snapshot is sent on join/auth success and after every change.
type Settings struct {
	// SlowModeEnabled enforces a per-IP minimum interval between accepted
	// messages. Admins are exempt.
	SlowModeEnabled bool `json:"slowModeEnabled"`

	// SlowModeSeconds is the cooldown applied when slow mode is on.
	SlowModeSeconds int `json:"slowModeSeconds"`

	// FeedbackEnabled opens a feedback collection cycle. Turning this
	// on always starts a new cycle.
	FeedbackEnabled bool `json:"feedbackEnabled"`

	// HideIP switches resolved URLs to the tunnel endpoints when a
	// tunnel is available, so the host's LAN address is never shown.
	HideIP bool `json:"hideIp"`

	// RemoteEnabled globally gates remote input control. Individual
	// admins still have to arm remote mode explicitly.
	RemoteEnabled bool `json:"remoteEnabled"`

	// AgentEnabled gates the @cee chat agent.
	AgentEnabled bool `json:"agentEnabled"`
}

// Patch is a partial settings update. Only non-nil fields are applied;
// this mirrors the admin-settings wire frame where absent keys mean
// "leave unchanged".
type Patch struct {
	SlowModeEnabled *bool `json:"slowModeEnabled"`
	SlowModeSeconds *int  `json:"slowModeSeconds"`
	FeedbackEnabled *bool `json:"feedbackEnabled"`
	HideIP          *bool `json:"hideIp"`
	RemoteEnabled   *bool `json:"remoteEnabled"`
	AgentEnabled    *bool `json:"agentEnabled"`
}

// ApplyResult reports side effects of a settings patch that the caller
// has to act on.
type ApplyResult struct {
	// FeedbackCycleStarted is true when feedback collection transitioned
	// from off to on, which begins a new feedback cycle.
	FeedbackCycleStarted bool

	// RemoteDisabled is true when remote control transitioned from on to
	// off, which must force-disarm any armed admin.
	RemoteDisabled bool
}

// Apply merges a patch into the settings. Numeric fields are range
// validated; out-of-range values are dropped silently and the previous
// value kept, matching the protocol's partial-update semantics.
func (s *Settings) Apply(p Patch) ApplyResult {
	var result ApplyResult

	if p.SlowModeEnabled != nil {
		s.SlowModeEnabled = *p.SlowModeEnabled
	}
	if p.SlowModeSeconds != nil {
		if *p.SlowModeSeconds >= SlowModeMinSeconds && *p.SlowModeSeconds <= SlowModeMaxSeconds {
			s.SlowModeSeconds = *p.SlowModeSeconds
		}
	}
	if p.FeedbackEnabled != nil {
		if *p.FeedbackEnabled && !s.FeedbackEnabled {
			result.FeedbackCycleStarted = true
		}
		s.FeedbackEnabled = *p.FeedbackEnabled
	}
	if p.HideIP != nil {
		s.HideIP = *p.HideIP
	}
	if p.RemoteEnabled != nil {
		if !*p.RemoteEnabled && s.RemoteEnabled {
			result.RemoteDisabled = true
		}
		s.RemoteEnabled = *p.RemoteEnabled
	}
	if p.AgentEnabled != nil {
		s.AgentEnabled = *p.AgentEnabled
	}

	return result
}
