package session

import "fmt"

// URLs are the externally visible endpoints for the current session.
// They are recomputed on demand and never cached, because both the
// settings and the tunnel state can change under them.
type URLs struct {
	// WS is the WebSocket endpoint clients should connect to.
	WS string `json:"wsUrl"`

	// HTTP is the page-serving endpoint clients should open.
	HTTP string `json:"httpUrl"`
}

// TunnelURLs holds the endpoints discovered from the tunnel process.
// Both must be set before the tunnel is considered usable.
type TunnelURLs struct {
	WS   string
	HTTP string
}

// available reports whether both tunnel endpoints are known.
func (t TunnelURLs) available() bool {
	return t.WS != "" && t.HTTP != ""
}

// ResolveURLs computes the session URLs from current settings and tunnel
// state. When hide-IP is on and a full tunnel is available, the tunnel
// endpoints win; otherwise the URLs are built from the host's LAN IPv4
// address and the fixed port pair (WS port, WS port + 1).
//
// This is a pure function: callers must re-invoke it after any settings
// or tunnel-state change rather than holding on to the result.
func ResolveURLs(hideIP bool, tunnel TunnelURLs, lanIP string, wsPort int) URLs {
	if hideIP && tunnel.available() {
		return URLs{WS: tunnel.WS, HTTP: tunnel.HTTP}
	}

	if lanIP == "" {
		lanIP = "127.0.0.1"
	}

	return URLs{
		WS:   fmt.Sprintf("ws://%s:%d", lanIP, wsPort),
		HTTP: fmt.Sprintf("http://%s:%d", lanIP, wsPort+1),
	}
}
