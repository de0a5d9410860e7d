// Package mdns provides optional mDNS/Bonjour advertisement of the
// chat host on the local network. Phones on the same network can then
// find the join page without anyone reading an IP address off the
// projector. Advertisement is opt-in and only reveals presence; the
// session code is never part of the advertisement, so discovery alone
// does not admit anyone.
package mdns

import (
	"fmt"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type for chat hosts, following the
// Bonjour _<service>._<protocol> convention.
const ServiceType = "_chatoneverything._tcp"

// ProtocolVersion identifies the advertised protocol for compatibility
// checks by discovering clients.
const ProtocolVersion = "1"

// Config holds the advertisement parameters.
type Config struct {
	// HTTPPort is the port of the join page the advertisement points at.
	HTTPPort int

	// WSPort is the broadcast server port, published as a TXT record so
	// clients can skip the page-injected endpoint discovery.
	WSPort int

	// Name is a human-readable instance name. Defaults to the system
	// hostname when empty.
	Name string
}

// Advertiser registers the host with DNS-SD while a session is live.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser with the given configuration.
// Nothing is announced until Start.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{config: cfg}
}

// Start registers the service. Safe to call repeatedly; a running
// advertiser is left alone.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	server, err := zeroconf.Register(
		a.instanceName(),
		ServiceType,
		"local.",
		a.config.HTTPPort,
		a.txtRecords(),
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	a.server = server
	return nil
}

// Stop unregisters the service. Safe to call repeatedly or without a
// prior Start.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// IsRunning reports whether the advertisement is active.
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// instanceName resolves the advertised instance name, falling back to
// the hostname and then a fixed name.
func (a *Advertiser) instanceName() string {
	if a.config.Name != "" {
		return a.config.Name
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "chatoneverything"
	}
	return hostname
}

// txtRecords builds the TXT metadata published with the service.
// Presence only: version, name, and the WS port. Never the session
// code or the admin password.
func (a *Advertiser) txtRecords() []string {
	records := []string{
		fmt.Sprintf("version=%s", ProtocolVersion),
		fmt.Sprintf("name=%s", a.instanceName()),
	}
	if a.config.WSPort > 0 {
		records = append(records, fmt.Sprintf("ws=%d", a.config.WSPort))
	}
	return records
}
