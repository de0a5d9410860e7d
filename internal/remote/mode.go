package remote

import (
	"log"
	"strings"
	"sync"
)

// ExecMode is the execution strategy for the external input tool.
//
// The tool runs either through the long-lived daemon (fast path) or by
// direct per-gesture invocation (slow path). The process starts in
// ModeUnknown, enters ModeDaemon once the daemon looks usable, and
// falls back to ModeDirect the first time a daemon invocation fails
// because no daemon instance is reachable. That transition is
// one-directional for the life of the process: the daemon is never
// retried.
type ExecMode int

const (
	// ModeUnknown means no execution strategy has been established yet.
	ModeUnknown ExecMode = iota

	// ModeDaemon pipes commands to the running input daemon.
	ModeDaemon

	// ModeDirect invokes the tool per command, paying process startup
	// and device setup on every gesture.
	ModeDirect
)

func (m ExecMode) String() string {
	switch m {
	case ModeDaemon:
		return "daemon"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// modeState tracks the execution mode and enforces its legal
// transitions.
type modeState struct {
	mu   sync.Mutex
	mode ExecMode
}

// Current returns the mode.
func (s *modeState) Current() ExecMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// EnterDaemon establishes daemon mode. Legal only from Unknown; once
// the process has fallen back to direct mode it stays there.
func (s *modeState) EnterDaemon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeUnknown {
		return false
	}
	s.mode = ModeDaemon
	return true
}

// EnterDirect establishes direct mode, either as the initial strategy
// (no daemon could be started) or as the permanent fallback after a
// daemon-unreachable failure. Returns false if already in direct mode.
func (s *modeState) EnterDirect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeDirect {
		return false
	}
	if s.mode == ModeDaemon {
		log.Printf("remote: input daemon unreachable, switching to direct invocation for the rest of this run")
	}
	s.mode = ModeDirect
	return true
}

// daemonUnreachable classifies a tool invocation failure: true when the
// failure specifically means no daemon instance is reachable (as
// opposed to a bad command, missing permission, etc.). Only this
// failure triggers the daemon -> direct fallback.
func daemonUnreachable(output string) bool {
	out := strings.ToLower(output)
	return strings.Contains(out, "failed to connect socket") ||
		strings.Contains(out, "connection refused") ||
		strings.Contains(out, "no such file or directory") && strings.Contains(out, "socket")
}
