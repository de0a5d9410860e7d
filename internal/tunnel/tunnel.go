// Package tunnel provisions an outbound cloudflared quick tunnel so a
// session can be joined from outside the LAN. The runner spawns the
// binary, scans its output for the assigned public URL, registers the
// endpoints with the session, and restarts the process with exponential
// backoff when it dies. No inbound firewall rule is ever needed; the
// tunnel is an outbound connection from this host.
package tunnel

import (
	"bufio"
	"context"
	"io"
	"log"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// urlDiscoveryTimeout bounds how long a freshly started process gets to
// print its assigned URL before it is considered wedged and restarted.
// Variable so tests can shrink it.
var urlDiscoveryTimeout = 15 * time.Second

// stableRunThreshold is how long a process must survive before the
// restart backoff resets. A tunnel that keeps dying right after startup
// should keep backing off.
const stableRunThreshold = time.Minute

// urlPattern matches the public URL cloudflared assigns to a quick
// tunnel. The URL appears in the process log output.
var urlPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

// URLsFunc receives the discovered endpoints. Called with empty strings
// when the tunnel goes away so stale URLs are never served to pages.
type URLsFunc func(wsURL, httpURL string)

// startCommand launches the tunnel process and returns its combined
// output stream, a wait function that blocks until exit, and a kill
// function. Overridable for tests.
var startCommand = func(ctx context.Context, bin string, args ...string) (output io.ReadCloser, wait func() error, kill func(), err error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	pr, pw, err := newPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	// cloudflared logs to stderr; capture both sides anyway.
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, nil, nil, err
	}

	wait = func() error {
		err := cmd.Wait()
		pw.Close()
		return err
	}
	kill = func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	return pr, wait, kill, nil
}

// newPipe is split out so startCommand stays readable.
func newPipe() (io.ReadCloser, io.WriteCloser, error) {
	pr, pw := io.Pipe()
	return pr, pw, nil
}

// Runner owns one cloudflared process and keeps it alive.
type Runner struct {
	binPath string

	// target is the local URL the tunnel forwards to, e.g.
	// "http://localhost:8081".
	target string

	// notify receives endpoint updates.
	notify URLsFunc
}

// NewRunner builds a runner for the given cloudflared binary and local
// target URL.
func NewRunner(binPath, target string, notify URLsFunc) *Runner {
	return &Runner{
		binPath: binPath,
		target:  target,
		notify:  notify,
	}
}

// Run starts the tunnel and keeps restarting it until the context is
// cancelled. Blocks; callers run it in a goroutine.
func (r *Runner) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for {
		started := time.Now()
		if err := r.runOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("tunnel: process ended: %v", err)
		}
		r.notify("", "")

		if ctx.Err() != nil {
			return
		}
		if time.Since(started) >= stableRunThreshold {
			b.Reset()
		}

		wait := b.NextBackOff()
		log.Printf("tunnel: restarting in %s", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce spawns the process, discovers the URL, and blocks until the
// process exits. An undiscovered URL within the deadline kills the
// process and returns an error so the restart loop takes over.
func (r *Runner) runOnce(ctx context.Context) error {
	output, wait, kill, err := startCommand(ctx, r.binPath,
		"tunnel", "--no-autoupdate", "--url", r.target)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTunnelStartFailed, "starting tunnel process", err)
	}
	defer output.Close()

	found := make(chan string, 1)
	go scanForURL(output, found)

	discoveryTimer := time.NewTimer(urlDiscoveryTimeout)
	defer discoveryTimer.Stop()

	select {
	case url := <-found:
		wsURL, httpURL := DeriveEndpoints(url)
		log.Printf("tunnel: public endpoint %s", httpURL)
		r.notify(wsURL, httpURL)
	case <-discoveryTimer.C:
		kill()
		wait()
		return apperrors.New(apperrors.CodeTunnelNoURL, "no tunnel URL discovered before the deadline")
	case <-ctx.Done():
		kill()
		wait()
		return ctx.Err()
	}

	return wait()
}

// scanForURL reads process output line by line and sends the first
// public URL it sees. Drains the rest so the process never blocks on a
// full pipe.
func scanForURL(output io.Reader, found chan<- string) {
	scanner := bufio.NewScanner(output)
	sent := false
	for scanner.Scan() {
		if sent {
			continue
		}
		if url := urlPattern.FindString(scanner.Text()); url != "" {
			found <- url
			sent = true
		}
	}
}

// DeriveEndpoints turns the assigned https URL into the WebSocket and
// HTTP endpoints registered with the session. The tunnel terminates TLS
// at the edge, so the WS endpoint is wss on the same host.
func DeriveEndpoints(httpsURL string) (wsURL, httpURL string) {
	httpURL = strings.TrimSuffix(httpsURL, "/")
	wsURL = "wss://" + strings.TrimPrefix(httpURL, "https://")
	return wsURL, httpURL
}
