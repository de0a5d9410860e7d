package remote

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// Tool binary names for the Linux backend.
const (
	// ToolName is the uinput client binary.
	ToolName = "ydotool"

	// DaemonName is the long-lived daemon the client talks to.
	DaemonName = "ydotoold"
)

// execTimeout bounds every tool invocation. A gesture that cannot be
// delivered in this window is treated as failed and dropped.
const execTimeout = 2 * time.Second

// doubleClickDelay separates the two synthesized clicks of a
// double-click; the tool has no native double-click primitive.
const doubleClickDelay = 50 * time.Millisecond

// Scroll shaping constants for the tool backend: the raw touch delta is
// divided down to wheel steps and capped per call.
const (
	scrollDivisor  = 3
	scrollMaxSteps = 10
)

// Linux kernel input-event codes for the keys the gesture tables use.
// The tool's key subcommand takes "code:1" (press) and "code:0"
// (release) pairs.
var toolKeyCodes = map[string]int{
	ModCtrl:  29,
	ModShift: 42,
	ModAlt:   56,
	ModSuper: 125,

	KeyEsc:   1,
	KeyEnter: 28,
	KeyTab:   15,
	KeySpace: 57,
	KeyUp:    103,
	KeyLeft:  105,
	KeyRight: 106,
	KeyDown:  108,
	KeyF:     33,
	KeyM:     50,

	KeyVolumeMute: 113,
	KeyVolumeDown: 114,
	KeyVolumeUp:   115,
	KeyMediaNext:  163,
	KeyMediaPlay:  164,
	KeyMediaPrev:  165,
	KeyMediaStop:  166,
}

// Mouse button codes for the tool's click subcommand: the low nibble
// selects the button, 0x40 is the press bit, 0x80 the release bit.
var toolButtonCodes = map[Button]int{
	ButtonLeft:   0x00,
	ButtonRight:  0x01,
	ButtonMiddle: 0x02,
}

const (
	toolPressBit   = 0x40
	toolReleaseBit = 0x80
	toolClickBits  = toolPressBit | toolReleaseBit
)

// runCommandFunc executes the tool binary. Tests override this to
// capture invocations without touching the system.
type runCommandFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// defaultRunCommand runs the binary with the given extra environment
// and returns combined output.
func defaultRunCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	return cmd.CombinedOutput()
}

// sleepFunc pauses between synthesized clicks. Tests override it.
type sleepFunc func(d time.Duration)

// ToolBackend drives input through the external uinput tool. It starts
// on the fast path (client talking to the running daemon) and falls
// back permanently to direct invocation when the daemon turns out to be
// unreachable.
type ToolBackend struct {
	toolPath   string
	socketPath string

	mode  *modeState
	run   runCommandFunc
	sleep sleepFunc
}

// NewToolBackend creates a backend for the tool at toolPath. daemonUp
// states whether a daemon instance is believed to be running; it only
// seeds the initial mode, a wrong guess corrects itself on the first
// failed invocation.
func NewToolBackend(toolPath, socketPath string, daemonUp bool) *ToolBackend {
	b := &ToolBackend{
		toolPath:   toolPath,
		socketPath: socketPath,
		mode:       &modeState{},
		run:        defaultRunCommand,
		sleep:      time.Sleep,
	}
	if daemonUp {
		b.mode.EnterDaemon()
	} else {
		b.mode.EnterDirect()
	}
	return b
}

// Name implements Backend.
func (b *ToolBackend) Name() string { return ToolName }

// Mode returns the current execution mode, for diagnostics.
func (b *ToolBackend) Mode() ExecMode { return b.mode.Current() }

// exec runs one tool command line under the current mode. A
// daemon-unreachable failure flips the mode to direct permanently; the
// failed gesture itself is dropped, not retried.
func (b *ToolBackend) exec(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	// In daemon mode the client is pointed at the daemon socket. In
	// direct mode the socket is cleared so the client opens the uinput
	// device itself, paying setup cost per invocation.
	var env []string
	if b.mode.Current() == ModeDaemon {
		env = []string{"YDOTOOL_SOCKET=" + b.socketPath}
	} else {
		env = []string{"YDOTOOL_SOCKET="}
	}

	output, err := b.run(ctx, env, b.toolPath, args...)
	if err == nil {
		return nil
	}

	if b.mode.Current() == ModeDaemon && daemonUnreachable(string(output)) {
		b.mode.EnterDirect()
		return apperrors.Wrap(apperrors.CodeRemoteDaemonDown,
			fmt.Sprintf("input daemon unreachable running %q", strings.Join(args, " ")), err)
	}

	return apperrors.Wrap(apperrors.CodeRemoteExecFailed,
		fmt.Sprintf("%s %s: %s", ToolName, strings.Join(args, " "), strings.TrimSpace(string(output))), err)
}

// MoveRelative implements Backend.
func (b *ToolBackend) MoveRelative(dx, dy int) error {
	return b.exec("mousemove", "-x", strconv.Itoa(dx), "-y", strconv.Itoa(dy))
}

// Button implements Backend. Double-click is synthesized as two clicks
// separated by a fixed delay.
func (b *ToolBackend) Button(btn Button, action ButtonAction) error {
	code, ok := toolButtonCodes[btn]
	if !ok {
		return apperrors.New(apperrors.CodeRemoteBadGesture, fmt.Sprintf("invalid mouse button %q", btn))
	}

	switch action {
	case ButtonClick:
		return b.exec("click", buttonArg(code|toolClickBits))
	case ButtonDoubleClick:
		if err := b.exec("click", buttonArg(code|toolClickBits)); err != nil {
			return err
		}
		b.sleep(doubleClickDelay)
		return b.exec("click", buttonArg(code|toolClickBits))
	case ButtonDown:
		return b.exec("click", buttonArg(code|toolPressBit))
	case ButtonUp:
		return b.exec("click", buttonArg(code|toolReleaseBit))
	}
	return apperrors.New(apperrors.CodeRemoteBadGesture, fmt.Sprintf("invalid button action %q", action))
}

func buttonArg(code int) string {
	return fmt.Sprintf("0x%X", code)
}

// Scroll implements Backend. The raw vertical delta is divided down to
// wheel steps and capped; the sign flips the wheel direction. The tool
// has no horizontal wheel, so dx is ignored here.
func (b *ToolBackend) Scroll(dx, dy int) error {
	steps := ScrollSteps(dy)
	if steps == 0 {
		return nil
	}
	return b.exec("mousemove", "-w", "-x", "0", "-y", strconv.Itoa(steps))
}

// ScrollSteps converts a raw vertical touch delta into wheel steps:
// divided by the fixed divisor and capped at the per-call maximum.
// Exported for the diagnostics command.
func ScrollSteps(dy int) int {
	steps := dy / scrollDivisor
	if steps > scrollMaxSteps {
		steps = scrollMaxSteps
	}
	if steps < -scrollMaxSteps {
		steps = -scrollMaxSteps
	}
	return steps
}

// TypeText implements Backend. Carriage returns, newlines and NULs are
// stripped before the text reaches the tool so a typed string can never
// smuggle in a command terminator.
func (b *ToolBackend) TypeText(text string) error {
	clean := SanitizeTypedText(text)
	if clean == "" {
		return nil
	}
	return b.exec("type", "--", clean)
}

// SanitizeTypedText removes CR, LF and NUL from text destined for a
// process-invoking backend.
func SanitizeTypedText(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', 0:
			return -1
		}
		return r
	}, text)
}

// KeyTap implements Backend. The press/release order is symmetric:
// modifiers first-to-last, the key, then modifiers last-to-first.
func (b *ToolBackend) KeyTap(key string, modifiers []string) error {
	args, err := toolKeyArgs(key, modifiers)
	if err != nil {
		return err
	}
	return b.exec(args...)
}

// toolKeyArgs builds the key subcommand's press/release sequence.
// Unknown key or modifier names are an error; there is no fallback key.
func toolKeyArgs(key string, modifiers []string) ([]string, error) {
	keyCode, ok := toolKeyCodes[key]
	if !ok {
		return nil, apperrors.New(apperrors.CodeRemoteUnknownKey,
			fmt.Sprintf("no %s translation for key %q", ToolName, key))
	}

	modCodes := make([]int, 0, len(modifiers))
	for _, mod := range modifiers {
		code, ok := toolKeyCodes[mod]
		if !ok {
			return nil, apperrors.New(apperrors.CodeRemoteUnknownKey,
				fmt.Sprintf("no %s translation for modifier %q", ToolName, mod))
		}
		modCodes = append(modCodes, code)
	}

	args := []string{"key"}
	for _, code := range modCodes {
		args = append(args, fmt.Sprintf("%d:1", code))
	}
	args = append(args, fmt.Sprintf("%d:1", keyCode), fmt.Sprintf("%d:0", keyCode))
	for i := len(modCodes) - 1; i >= 0; i-- {
		args = append(args, fmt.Sprintf("%d:0", modCodes[i]))
	}
	return args, nil
}

// Probe runs a no-op command through the backend to verify the tool can
// deliver events at all. Used by permission detection and the doctor
// command.
func (b *ToolBackend) Probe() error {
	return b.exec("mousemove", "-x", "0", "-y", "0")
}
