package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name          string
		trustedHeader string
		headers       map[string]string
		remoteAddr    string
		want          string
	}{
		{
			name:          "trusted proxy header wins",
			trustedHeader: "CF-Connecting-IP",
			headers: map[string]string{
				"CF-Connecting-IP": "203.0.113.9",
				"X-Forwarded-For":  "198.51.100.1, 10.0.0.1",
			},
			remoteAddr: "10.0.0.2:4444",
			want:       "203.0.113.9",
		},
		{
			name:          "first forwarded-for entry",
			trustedHeader: "CF-Connecting-IP",
			headers:       map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.1"},
			remoteAddr:    "10.0.0.2:4444",
			want:          "198.51.100.1",
		},
		{
			name:       "raw socket peer",
			remoteAddr: "192.168.1.50:51000",
			want:       "192.168.1.50",
		},
		{
			name:       "ipv4-mapped ipv6 stripped",
			remoteAddr: "[::ffff:192.168.1.50]:51000",
			want:       "192.168.1.50",
		},
		{
			name:          "empty trusted header falls through",
			trustedHeader: "CF-Connecting-IP",
			headers:       map[string]string{"CF-Connecting-IP": "  "},
			remoteAddr:    "192.168.1.50:51000",
			want:          "192.168.1.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustedHeader); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
