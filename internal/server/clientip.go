package server

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the real client IP for a request. Preference
// order: the trusted proxy header set by the tunnel provider, then the
// first X-Forwarded-For entry, then the raw socket peer. The result is
// normalized: port stripped, IPv4-mapped IPv6 prefix removed.
func ClientIP(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if ip := strings.TrimSpace(r.Header.Get(trustedHeader)); ip != "" {
			return normalizeIP(ip)
		}
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// The first entry is the originating client; later entries are
		// intermediate proxies.
		first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		if first != "" {
			return normalizeIP(first)
		}
	}

	return normalizeIP(r.RemoteAddr)
}

// normalizeIP strips a port if present and unwraps IPv4-mapped IPv6
// addresses so the same client always yields the same key in the
// moderation store.
func normalizeIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimPrefix(addr, "::ffff:")
	return addr
}
