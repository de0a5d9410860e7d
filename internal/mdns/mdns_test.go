package mdns

import (
	"strings"
	"testing"
)

func TestServiceType(t *testing.T) {
	if ServiceType != "_chatoneverything._tcp" {
		t.Errorf("service type = %s", ServiceType)
	}
}

func TestAdvertiserNotRunningInitially(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081})
	if a.IsRunning() {
		t.Error("advertiser should not be running before Start()")
	}
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081})
	a.Stop()
	a.Stop()
	if a.IsRunning() {
		t.Error("advertiser should not be running after Stop()")
	}
}

func TestInstanceNameExplicit(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081, Name: "living-room-pc"})
	if got := a.instanceName(); got != "living-room-pc" {
		t.Errorf("instanceName() = %q", got)
	}
}

func TestInstanceNameDefaultsToHostname(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081})
	if got := a.instanceName(); got == "" {
		t.Error("instanceName() should never be empty")
	}
}

func TestTXTRecordsNeverCarrySecrets(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081, WSPort: 8080, Name: "host"})
	records := a.txtRecords()

	want := map[string]bool{"version=1": false, "name=host": false, "ws=8080": false}
	for _, rec := range records {
		if _, ok := want[rec]; ok {
			want[rec] = true
			continue
		}
		// Anything else is unexpected metadata; nothing beyond presence
		// belongs in the advertisement.
		t.Errorf("unexpected TXT record %q", rec)
	}
	for rec, seen := range want {
		if !seen {
			t.Errorf("missing TXT record %q", rec)
		}
	}
	for _, rec := range records {
		if strings.Contains(rec, "code=") || strings.Contains(rec, "password=") {
			t.Errorf("TXT record %q leaks a secret", rec)
		}
	}
}

func TestTXTRecordsOmitUnsetWSPort(t *testing.T) {
	a := NewAdvertiser(Config{HTTPPort: 8081, Name: "host"})
	for _, rec := range a.txtRecords() {
		if strings.HasPrefix(rec, "ws=") {
			t.Errorf("ws record %q should be omitted when the port is unset", rec)
		}
	}
}

// TestAdvertiserStartStop needs multicast on the local network and is
// skipped in short mode.
func TestAdvertiserStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	a := NewAdvertiser(Config{HTTPPort: 8081, WSPort: 8080, Name: "mdns-test-host"})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !a.IsRunning() {
		t.Error("advertiser should be running after Start()")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("second Start() should be a no-op, got %v", err)
	}

	a.Stop()
	if a.IsRunning() {
		t.Error("advertiser should not be running after Stop()")
	}
}
