package session

import (
	"log"
	"sync"
)

// State is the session aggregate shared between the broadcast server,
// the HTTP surface, and the remote input controller. It owns the
// identity, the mutable settings, and the tunnel endpoints, and guards
// them with one mutex so any goroutine can consult it safely.
type State struct {
	identity *Identity

	mu       sync.RWMutex
	settings Settings
	tunnel   TunnelURLs

	// lanIP and wsPort feed URL resolution; fixed at construction.
	lanIP  string
	wsPort int
}

// NewState creates the session aggregate with the given identity and
// initial settings.
func NewState(identity *Identity, initial Settings, lanIP string, wsPort int) *State {
	return &State{
		identity: identity,
		settings: initial,
		lanIP:    lanIP,
		wsPort:   wsPort,
	}
}

// Identity returns the session identity.
func (s *State) Identity() *Identity {
	return s.identity
}

// Settings returns a snapshot of the current settings.
func (s *State) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply merges a settings patch and returns the updated snapshot along
// with the side effects the caller must act on (new feedback cycle,
// forced remote disarm).
func (s *State) Apply(p Patch) (Settings, ApplyResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.settings.Apply(p)
	return s.settings, result
}

// SetTunnelURLs registers the endpoints discovered from the tunnel
// process. Called by the tunnel runner once the public URL is known,
// and again with empty strings if the tunnel goes away.
func (s *State) SetTunnelURLs(wsURL, httpURL string) {
	s.mu.Lock()
	s.tunnel = TunnelURLs{WS: wsURL, HTTP: httpURL}
	s.mu.Unlock()
	log.Printf("session: tunnel URLs updated (ws=%q http=%q)", wsURL, httpURL)
}

// WSPort returns the fixed WebSocket port.
func (s *State) WSPort() int {
	return s.wsPort
}

// TunnelURLs returns the current tunnel endpoints.
func (s *State) TunnelURLs() TunnelURLs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tunnel
}

// URLs resolves the externally visible endpoints from the current
// settings and tunnel state. Recomputed on every call.
func (s *State) URLs() URLs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResolveURLs(s.settings.HideIP, s.tunnel, s.lanIP, s.wsPort)
}
