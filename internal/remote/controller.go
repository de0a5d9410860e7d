package remote

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// moveInterval is the minimum spacing between applied pointer moves.
// Moves arriving faster than this are dropped, not queued.
const moveInterval = 16 * time.Millisecond

// Controller owns the armed/disarmed remote-control state and the
// gesture pipeline: validate, rate-limit, translate, execute. Execution
// failures never reach the caller; remote input is best effort.
type Controller struct {
	backend Backend

	mu         sync.Mutex
	armed      bool
	isDragging bool

	moveGate *rate.Limiter
}

// NewController wraps backend. A nil backend yields a controller that
// reports unavailable and drops every gesture.
func NewController(backend Backend) *Controller {
	return &Controller{
		backend:  backend,
		moveGate: rate.NewLimiter(rate.Every(moveInterval), 1),
	}
}

// Available reports whether an input backend exists on this host.
func (c *Controller) Available() bool { return c.backend != nil }

// Arm enables gesture handling.
func (c *Controller) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		return
	}
	c.armed = true
	log.Printf("remote: armed")
}

// Disarm disables gesture handling and returns whether a drag was
// still open. The flag is only bookkeeping for the caller's
// window-state cleanup; no synthetic button-up is sent to the OS.
func (c *Controller) Disarm() (wasDragging bool) {
	c.mu.Lock()
	wasDragging = c.isDragging
	c.armed = false
	c.isDragging = false
	c.mu.Unlock()

	if wasDragging {
		log.Printf("remote: disarmed mid-drag")
	} else {
		log.Printf("remote: disarmed")
	}
	return wasDragging
}

// Armed reports whether remote control is currently armed.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Handle runs one gesture through the pipeline. Every failure is
// logged and swallowed here; the caller never sees an error and the
// gesture is simply lost.
func (c *Controller) Handle(cmd Command) {
	c.mu.Lock()
	if !c.armed || c.backend == nil {
		c.mu.Unlock()
		return
	}
	switch cmd.Kind {
	case KindButtonDown:
		c.isDragging = true
	case KindButtonUp:
		c.isDragging = false
	}
	c.mu.Unlock()

	if err := cmd.Validate(); err != nil {
		log.Printf("remote: dropping gesture: %v", err)
		return
	}

	if err := c.dispatch(cmd); err != nil {
		log.Printf("remote: %s failed: %v", cmd.Kind, err)
	}
}

func (c *Controller) dispatch(cmd Command) error {
	switch cmd.Kind {
	case KindMove:
		if !c.moveGate.Allow() {
			return nil
		}
		return c.backend.MoveRelative(cmd.DX, cmd.DY)
	case KindClick:
		return c.backend.Button(cmd.Button, ButtonClick)
	case KindDoubleClick:
		return c.backend.Button(cmd.Button, ButtonDoubleClick)
	case KindButtonDown:
		return c.backend.Button(cmd.Button, ButtonDown)
	case KindButtonUp:
		return c.backend.Button(cmd.Button, ButtonUp)
	case KindScroll:
		return c.backend.Scroll(cmd.DX, cmd.DY)
	case KindTypeText:
		return c.backend.TypeText(cmd.Text)
	case KindKeyPress:
		return c.backend.KeyTap(cmd.Key, cmd.Modifiers)
	case KindVolume:
		return c.backend.KeyTap(volumeKeys[cmd.Action], nil)
	case KindMedia:
		return c.backend.KeyTap(mediaKeys[cmd.Action], nil)
	case KindPlayerControl:
		return c.playerControl(cmd)
	}
	return apperrors.New(apperrors.CodeRemoteBadGesture, "unknown gesture kind "+string(cmd.Kind))
}

// playerControl maps the player actions onto the key conventions of
// common desktop media players.
func (c *Controller) playerControl(cmd Command) error {
	switch cmd.Action {
	case "playpause":
		return c.backend.KeyTap(KeySpace, nil)
	case "fullscreen":
		return c.backend.KeyTap(KeyF, nil)
	case "seek":
		key, mods := seekChord(cmd.Value)
		return c.backend.KeyTap(key, mods)
	}
	return apperrors.New(apperrors.CodeRemoteBadGesture, "unknown player action "+cmd.Action)
}

// seekChord picks the arrow-key chord for a seek offset in seconds.
// Magnitude selects granularity: coarse jumps at a minute and up,
// medium from ten seconds, fine below that. Sign selects direction.
func seekChord(seconds int) (key string, modifiers []string) {
	magnitude := seconds
	if magnitude < 0 {
		magnitude = -magnitude
	}

	switch {
	case magnitude >= 60:
		modifiers = []string{ModCtrl, ModShift}
	case magnitude >= 10:
		modifiers = []string{ModCtrl}
	default:
		modifiers = []string{ModShift}
	}

	if seconds < 0 {
		return KeyLeft, modifiers
	}
	return KeyRight, modifiers
}
