//go:build !linux && !darwin && !windows

package remote

import "runtime"

// DetectBackend reports that no input backend exists on this platform.
func DetectBackend() (Backend, Availability) {
	return nil, Availability{
		Backend: "none",
		Detail:  runtime.GOOS + " has no input backend",
	}
}
