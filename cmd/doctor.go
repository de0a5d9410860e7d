// Package main provides the chatoneverything CLI.
// This file implements the `chatoneverything doctor` diagnostic command.
//
// Doctor runs preflight checks against the local environment and
// reports actionable remediation for anything not ready: input backend
// presence, input device permission, LAN reachability, port
// availability, log directory and feedback archive. It supports both
// human-readable (default) and machine-readable (--json) output.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"

	"github.com/sumsupee/chatoneverything/internal/audit"
	"github.com/sumsupee/chatoneverything/internal/remote"
	"github.com/sumsupee/chatoneverything/internal/storage"
)

// DoctorResult is the top-level JSON output for `doctor --json`.
type DoctorResult struct {
	// Version is the doctor output schema version. Always "1".
	Version string `json:"version"`

	// Checks is the ordered list of evaluated checks.
	Checks []DoctorCheck `json:"checks"`

	// Summary contains aggregate pass/warn/fail counts.
	Summary DoctorSummary `json:"summary"`
}

// DoctorCheck is one diagnostic check in the doctor output.
type DoctorCheck struct {
	// ID is a stable, machine-readable identifier, e.g. "input.backend".
	ID string `json:"id"`

	// Status is "pass", "warn" or "fail".
	Status string `json:"status"`

	// Message summarizes what was found.
	Message string `json:"message"`

	// NextAction is a concrete remediation step.
	NextAction string `json:"next_action"`
}

// DoctorSummary holds aggregate counts of check outcomes.
type DoctorSummary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Stable check IDs. Part of the CLI contract; must not change.
const (
	checkIDInputBackend    = "input.backend"
	checkIDInputPermission = "input.permission"
	checkIDNetworkLAN      = "network.lan_address"
	checkIDNetworkPorts    = "network.ports"
	checkIDAuditLogDir     = "audit.log_dir"
	checkIDStorageArchive  = "storage.archive"
)

// Stable status values for doctor checks.
const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"
)

// Function-variable seams for testability. Tests override these to run
// without touching input devices, the network or the filesystem.
var (
	// doctorDetectBackend probes for an input backend.
	doctorDetectBackend = remote.DetectBackend

	// doctorProbePermission runs the input permission probe for tool
	// backends. applicable is false for backends without one.
	doctorProbePermission = defaultProbePermission

	// doctorOutboundIP resolves the LAN address.
	doctorOutboundIP = GetPreferredOutboundIP

	// doctorListen probes port availability.
	doctorListen = net.Listen

	// doctorWritableDir resolves the log directory.
	doctorWritableDir = audit.WritableDir

	// doctorOpenArchive opens the feedback archive.
	doctorOpenArchive = func(path string) (io.Closer, error) {
		return storage.NewSQLiteStore(path)
	}
)

// defaultProbePermission runs the no-op probe when the backend is the
// external-tool one. Native backends carry their permission in the
// process and have nothing to probe.
func defaultProbePermission(b remote.Backend) (state remote.PermissionState, applicable bool) {
	tool, ok := b.(*remote.ToolBackend)
	if !ok {
		return "", false
	}
	return remote.ProbePermission(tool), true
}

// runDoctor implements the `chatoneverything doctor` CLI command.
// Returns 0 when no checks fail, 1 when any check fails.
func runDoctor(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var jsonMode bool
	var configPath string

	fs.BoolVar(&jsonMode, "json", false, "Emit machine-readable JSON to stdout")
	fs.StringVar(&configPath, "config", "", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: chatoneverything doctor [options]\n\nDiagnose input, network and storage readiness.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	backend, avail := doctorDetectBackend()

	checks := make([]DoctorCheck, 0, 6)
	checks = append(checks, evalInputBackend(avail))
	checks = append(checks, evalInputPermission(backend, avail))
	checks = append(checks, evalNetworkLAN())
	checks = append(checks, evalNetworkPorts(cfg.WSPort, cfg.HTTPPort()))
	checks = append(checks, evalAuditLogDir(cfg.LogDir))
	checks = append(checks, evalStorageArchive(cfg.FeedbackDB))

	summary := DoctorSummary{}
	for _, c := range checks {
		switch c.Status {
		case statusPass:
			summary.Pass++
		case statusWarn:
			summary.Warn++
		case statusFail:
			summary.Fail++
		}
	}

	result := DoctorResult{Version: "1", Checks: checks, Summary: summary}

	if jsonMode {
		if err := renderDoctorJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "Error: failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		renderDoctorHuman(stdout, result)
	}

	if summary.Fail > 0 {
		return 1
	}
	return 0
}

// evalInputBackend evaluates input.backend.
// Decision table:
//   - backend available -> pass
//   - no backend -> warn (chat and pages still work without input control)
func evalInputBackend(avail remote.Availability) DoctorCheck {
	check := DoctorCheck{ID: checkIDInputBackend}

	if avail.Available {
		check.Status = statusPass
		check.Message = fmt.Sprintf("Input backend ready: %s.", avail)
		check.NextAction = "No action required."
		return check
	}

	check.Status = statusWarn
	check.Message = fmt.Sprintf("No input backend: %s.", avail.Detail)
	check.NextAction = "Install ydotool (Linux) to enable remote input control; chat works without it."
	return check
}

// evalInputPermission evaluates input.permission.
// Decision table:
//   - no backend -> warn (nothing to probe)
//   - backend without a probe (native) -> pass
//   - probe ok -> pass
//   - need-relogin -> warn
//   - need-setup -> fail
func evalInputPermission(backend remote.Backend, avail remote.Availability) DoctorCheck {
	check := DoctorCheck{ID: checkIDInputPermission}

	if backend == nil {
		check.Status = statusWarn
		check.Message = "No input backend to probe."
		check.NextAction = "Resolve the input.backend check first."
		return check
	}

	state, applicable := doctorProbePermission(backend)
	if !applicable {
		check.Status = statusPass
		check.Message = fmt.Sprintf("Backend %q needs no device permission probe.", avail.Backend)
		check.NextAction = "No action required."
		return check
	}

	switch state {
	case remote.PermissionOK:
		check.Status = statusPass
		check.Message = "Input device permission verified."
		check.NextAction = "No action required."
	case remote.PermissionNeedRelogin:
		check.Status = statusWarn
		check.Message = "Access rule is installed but not active in this login session."
		check.NextAction = "Log out and back in (or reboot) so the device rule takes effect."
	default:
		check.Status = statusFail
		check.Message = "Input device is not writable and no access rule is installed."
		check.NextAction = "Run `chatoneverything setup` to install the device access rule."
	}
	return check
}

// evalNetworkLAN evaluates network.lan_address.
// Decision table:
//   - LAN address resolved -> pass
//   - none -> warn (loopback-only URLs)
func evalNetworkLAN() DoctorCheck {
	check := DoctorCheck{ID: checkIDNetworkLAN}

	ip := doctorOutboundIP()
	if ip != "" {
		check.Status = statusPass
		check.Message = fmt.Sprintf("LAN address is %s.", ip)
		check.NextAction = "No action required."
		return check
	}

	check.Status = statusWarn
	check.Message = "No LAN address found; join URLs will use loopback."
	check.NextAction = "Connect to a network, or use a tunnel so phones can still reach the session."
	return check
}

// evalNetworkPorts evaluates network.ports.
// Decision table:
//   - both ports free -> pass
//   - a port busy -> warn (a host may already be running on it)
func evalNetworkPorts(wsPort, httpPort int) DoctorCheck {
	check := DoctorCheck{ID: checkIDNetworkPorts}

	for _, port := range []int{wsPort, httpPort} {
		ln, err := doctorListen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			check.Status = statusWarn
			check.Message = fmt.Sprintf("Port %d is in use.", port)
			check.NextAction = "Stop the process using the port, pick another ws_port, or ignore if a host is already running."
			return check
		}
		ln.Close()
	}

	check.Status = statusPass
	check.Message = fmt.Sprintf("Ports %d and %d are available.", wsPort, httpPort)
	check.NextAction = "No action required."
	return check
}

// evalAuditLogDir evaluates audit.log_dir.
// Decision table:
//   - a writable directory resolves -> pass
//   - none -> fail (event logs are not optional)
func evalAuditLogDir(explicit string) DoctorCheck {
	check := DoctorCheck{ID: checkIDAuditLogDir}

	dir, err := doctorWritableDir(explicit)
	if err == nil {
		check.Status = statusPass
		check.Message = fmt.Sprintf("Event logs will be written to %s.", dir)
		check.NextAction = "No action required."
		return check
	}

	check.Status = statusFail
	check.Message = fmt.Sprintf("No writable log directory: %v", err)
	check.NextAction = "Set log_dir in the config file to a writable directory."
	return check
}

// evalStorageArchive evaluates storage.archive.
// Decision table:
//   - archive opens -> pass
//   - open fails -> fail
func evalStorageArchive(path string) DoctorCheck {
	check := DoctorCheck{ID: checkIDStorageArchive}

	archive, err := doctorOpenArchive(path)
	if err == nil {
		archive.Close()
		check.Status = statusPass
		check.Message = fmt.Sprintf("Feedback archive at %s is usable.", path)
		check.NextAction = "No action required."
		return check
	}

	check.Status = statusFail
	check.Message = fmt.Sprintf("Feedback archive error: %v", err)
	check.NextAction = "Fix feedback_db in the config file or its directory permissions."
	return check
}

// renderDoctorJSON writes the doctor result as JSON to stdout.
// Only valid JSON is written to stdout; no extra lines.
func renderDoctorJSON(w io.Writer, result DoctorResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// renderDoctorHuman writes the doctor result in human-readable format.
func renderDoctorHuman(w io.Writer, result DoctorResult) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Chat On Everything Doctor")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintln(w, "")

	for _, c := range result.Checks {
		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(c.Status), c.ID, c.Message)
		if c.Status != statusPass {
			fmt.Fprintf(w, "    -> %s\n", c.NextAction)
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d failures\n",
		result.Summary.Pass, result.Summary.Warn, result.Summary.Fail)
	fmt.Fprintln(w, "")
}

// statusIcon returns a text marker for the check status.
func statusIcon(status string) string {
	switch status {
	case statusPass:
		return "[PASS]"
	case statusWarn:
		return "[WARN]"
	case statusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}
