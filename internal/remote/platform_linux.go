//go:build linux

package remote

import (
	"fmt"
	"log"
	"os"
	"os/exec"
)

// lookPath and startDaemonFunc are seams for the detection tests.
var (
	lookPath = exec.LookPath

	startDaemonFunc = func(daemonPath, socketPath string) error {
		cmd := exec.Command(daemonPath, "--socket-path", socketPath)
		cmd.Stdout = nil
		cmd.Stderr = nil
		if err := cmd.Start(); err != nil {
			return err
		}
		// Detached: the daemon outlives any interest we have in it and
		// is never waited on.
		go func() { _ = cmd.Wait() }()
		return nil
	}
)

// daemonSocketPath is where the daemon listens for this user.
func daemonSocketPath() string {
	return fmt.Sprintf("/run/user/%d/.chatoneverything_ydotool_socket", os.Getuid())
}

// DetectBackend locates the input tool, tries to bring up its daemon
// and returns the backend plus an availability report. A missing tool
// means no backend; a daemon that fails to start is non-fatal and the
// backend runs in direct mode from the first gesture.
func DetectBackend() (Backend, Availability) {
	toolPath, err := lookPath(ToolName)
	if err != nil {
		return nil, Availability{
			Backend: ToolName,
			Detail:  fmt.Sprintf("%s not found in PATH", ToolName),
		}
	}

	socketPath := daemonSocketPath()
	daemonUp := false
	daemonPath, err := lookPath(DaemonName)
	if err != nil {
		log.Printf("remote: %s not found, using direct invocation", DaemonName)
	} else if err := startDaemonFunc(daemonPath, socketPath); err != nil {
		log.Printf("remote: starting %s: %v, using direct invocation", DaemonName, err)
	} else {
		daemonUp = true
		log.Printf("remote: started %s on %s", DaemonName, socketPath)
	}

	backend := NewToolBackend(toolPath, socketPath, daemonUp)
	return backend, Availability{
		Available:  true,
		Backend:    ToolName,
		ToolPath:   toolPath,
		DaemonPath: daemonPath,
		Detail:     "mode " + backend.Mode().String(),
	}
}
