package remote

import (
	"context"
	"log"
	"os"
	"time"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// PermissionState is the outcome of the input permission probe.
type PermissionState string

const (
	// PermissionOK means a no-op event was delivered successfully.
	PermissionOK PermissionState = "ok"

	// PermissionNeedSetup means event delivery failed and no access
	// rule is installed: the operator has to run the setup flow.
	PermissionNeedSetup PermissionState = "need-setup"

	// PermissionNeedRelogin means event delivery failed even though an
	// access rule is installed. The rule has not taken effect in this
	// login session yet.
	PermissionNeedRelogin PermissionState = "need-relogin"
)

// uinputRulePath is where the setup flow installs the device access
// rule on Linux.
const uinputRulePath = "/etc/udev/rules.d/99-chatoneverything-uinput.rules"

// uinputRule grants the input group write access to the uinput device
// and loads the module at boot.
const uinputRule = `KERNEL=="uinput", GROUP="input", MODE="0660", OPTIONS+="static_node=uinput"`

// setupTimeout bounds the privilege-escalation prompt plus the rule
// install. The prompt is interactive, so this is much longer than the
// per-gesture exec timeout.
const setupTimeout = 60 * time.Second

// ClassifyPermission is the pure probe decision: given whether the tool
// was found, whether the access rule file exists and whether the no-op
// probe succeeded, it returns the 3-value permission state. A missing
// tool is reported as need-setup; installing it is part of setup.
func ClassifyPermission(toolFound, ruleInstalled, probeOK bool) PermissionState {
	switch {
	case !toolFound:
		return PermissionNeedSetup
	case probeOK:
		return PermissionOK
	case ruleInstalled:
		return PermissionNeedRelogin
	default:
		return PermissionNeedSetup
	}
}

// ruleFileExists reports whether the access rule is installed. Seam for
// tests.
var ruleFileExists = func() bool {
	_, err := os.Stat(uinputRulePath)
	return err == nil
}

// ProbePermission runs the no-op probe against the backend and
// classifies the result. A nil backend means no tool was found.
func ProbePermission(backend *ToolBackend) PermissionState {
	if backend == nil {
		return ClassifyPermission(false, ruleFileExists(), false)
	}
	err := backend.Probe()
	if err != nil {
		log.Printf("remote: permission probe failed: %v", err)
	}
	return ClassifyPermission(true, ruleFileExists(), err == nil)
}

// runSetupCommand executes the elevated install command. Seam for
// tests.
var runSetupCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return defaultRunCommand(ctx, nil, name, args...)
}

// InstallAccessRule writes the uinput access rule through a single
// privilege-escalation prompt and reloads udev. The operator has to log
// out and back in afterwards for the group change to apply.
func InstallAccessRule(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	script := "printf '%s\\n' '" + uinputRule + "' > " + uinputRulePath +
		" && udevadm control --reload-rules && udevadm trigger"
	output, err := runSetupCommand(ctx, "pkexec", "sh", "-c", script)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteSetupFailed,
			"installing input access rule: "+string(output), err)
	}
	log.Printf("remote: installed input access rule at %s, re-login required", uinputRulePath)
	return nil
}
