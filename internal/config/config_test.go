package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WSPort != DefaultWSPort {
		t.Errorf("WSPort = %d, want %d", cfg.WSPort, DefaultWSPort)
	}
	if cfg.HTTPPort() != DefaultWSPort+1 {
		t.Errorf("HTTPPort() = %d, want %d", cfg.HTTPPort(), DefaultWSPort+1)
	}
	if cfg.TrustedProxyHeader != DefaultTrustedProxyHeader {
		t.Errorf("TrustedProxyHeader = %q", cfg.TrustedProxyHeader)
	}
	if !cfg.RemoteEnabled {
		t.Error("RemoteEnabled should default to true")
	}
	if cfg.AgentEnabled {
		t.Error("AgentEnabled should default to false")
	}
}

func TestLoadParsesValues(t *testing.T) {
	path := writeConfig(t, `
ws_port = 9090
trusted_proxy_header = "X-Real-IP"
remote_enabled = false
slow_mode_seconds = 10
mdns_enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("WSPort = %d, want 9090", cfg.WSPort)
	}
	if cfg.HTTPPort() != 9091 {
		t.Errorf("HTTPPort() = %d, want 9091", cfg.HTTPPort())
	}
	if cfg.TrustedProxyHeader != "X-Real-IP" {
		t.Errorf("TrustedProxyHeader = %q", cfg.TrustedProxyHeader)
	}
	if cfg.RemoteEnabled {
		t.Error("remote_enabled = false in file should override the default")
	}
	if cfg.SlowModeSeconds != 10 {
		t.Errorf("SlowModeSeconds = %d, want 10", cfg.SlowModeSeconds)
	}
	if !cfg.MdnsEnabled {
		t.Error("MdnsEnabled should be true")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `ws_prot = 9090`)
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject unknown keys")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `ws_port = [not toml`)
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.WSPort = 0 }, true},
		{"port leaves no room for http", func(c *Config) { c.WSPort = 65535 }, true},
		{"slow mode too small", func(c *Config) { c.SlowModeSeconds = 0 }, true},
		{"slow mode too large", func(c *Config) { c.SlowModeSeconds = 61 }, true},
		{"slow mode upper bound", func(c *Config) { c.SlowModeSeconds = 60 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
