// Package config provides TOML configuration file loading and parsing for the host.
// The configuration file lives at ~/.chatoneverything/config.toml by default, but
// can be overridden with the --config flag. CLI flags always take precedence over
// file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the host configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// WSPort is the port for the WebSocket broadcast server.
	// The HTTP surface always listens on WSPort+1.
	// Default: 8080
	WSPort int `toml:"ws_port"`

	// TrustedProxyHeader is the request header consulted first when resolving
	// the real client IP. Typically set by the tunnel provider's edge.
	// Default: CF-Connecting-IP
	TrustedProxyHeader string `toml:"trusted_proxy_header"`

	// LogDir is an explicit directory for JSONL event logs.
	// If empty, the first writable candidate is used (cwd, executable
	// directory, then the user config directory).
	LogDir string `toml:"log_dir"`

	// FeedbackDB is the path to the SQLite feedback archive.
	// Default: ~/.chatoneverything/feedback.db
	FeedbackDB string `toml:"feedback_db"`

	// RemoteEnabled globally enables the remote input controller.
	// When false, remote-* frames are dropped even for armed admins.
	// Default: true
	RemoteEnabled bool `toml:"remote_enabled"`

	// AgentEnabled enables the @cee chat agent integration.
	// Default: false (the agent also needs an API key to do anything)
	AgentEnabled bool `toml:"agent_enabled"`

	// SlowModeSeconds is the initial slow-mode cooldown. Valid range [1,60].
	// Slow mode itself starts disabled; this only seeds the setting.
	// Default: 5
	SlowModeSeconds int `toml:"slow_mode_seconds"`

	// MdnsEnabled enables mDNS/Bonjour service advertisement.
	// When true, the host advertises its HTTP port on the local network so
	// phones can discover it without typing an IP. Discovery only reveals
	// presence; the session code is still required to join.
	// Default: false (disabled for security - must be explicitly enabled)
	MdnsEnabled bool `toml:"mdns_enabled"`

	// QR renders the join URL as a QR code on startup.
	// Default: false
	QR bool `toml:"qr"`

	// Tunnel is the path to the cloudflared binary. When set, the host
	// provisions an outbound tunnel at startup and registers the discovered
	// URLs with the session. Empty disables tunneling.
	Tunnel string `toml:"tunnel"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level"`
}

// DefaultConfigPath returns the default config file location:
// ~/.chatoneverything/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatoneverything", "config.toml"), nil
}

// DefaultFeedbackDBPath returns the default SQLite archive location:
// ~/.chatoneverything/feedback.db.
func DefaultFeedbackDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatoneverything", "feedback.db"), nil
}

// Load reads and parses the TOML config file at the given path.
//
// Behavior:
//   - If the file does not exist, returns a Config with defaults applied
//     and no error (a missing config file is not a failure).
//   - If the file exists but cannot be parsed, returns an error.
//   - Unknown keys in the file are rejected to catch typos early.
func Load(path string) (*Config, error) {
	// RemoteEnabled defaults to true, so it is seeded before decoding;
	// a "remote_enabled = false" line in the file still wins.
	cfg := &Config{RemoteEnabled: true}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Reject unknown keys so a misspelled option doesn't silently fall
	// back to its default.
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills in zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.WSPort == 0 {
		c.WSPort = DefaultWSPort
	}
	if c.TrustedProxyHeader == "" {
		c.TrustedProxyHeader = DefaultTrustedProxyHeader
	}
	if c.SlowModeSeconds == 0 {
		c.SlowModeSeconds = DefaultSlowModeSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.FeedbackDB == "" {
		if path, err := DefaultFeedbackDBPath(); err == nil {
			c.FeedbackDB = path
		}
	}
}

// HTTPPort returns the port for the HTTP surface. It is always the
// WebSocket port plus one; the pair is treated as a unit.
func (c *Config) HTTPPort() int {
	return c.WSPort + 1
}

// Validate checks configured values that have a constrained range.
func (c *Config) Validate() error {
	if c.WSPort < 1 || c.WSPort > 65534 {
		return fmt.Errorf("ws_port %d out of range [1,65534] (the HTTP surface needs ws_port+1)", c.WSPort)
	}
	if c.SlowModeSeconds < 1 || c.SlowModeSeconds > 60 {
		return fmt.Errorf("slow_mode_seconds %d out of range [1,60]", c.SlowModeSeconds)
	}
	return nil
}
