package tunnel

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

func TestDeriveEndpoints(t *testing.T) {
	tests := []struct {
		in       string
		wantWS   string
		wantHTTP string
	}{
		{"https://witty-crab.trycloudflare.com", "wss://witty-crab.trycloudflare.com", "https://witty-crab.trycloudflare.com"},
		{"https://witty-crab.trycloudflare.com/", "wss://witty-crab.trycloudflare.com", "https://witty-crab.trycloudflare.com"},
	}
	for _, tt := range tests {
		ws, http := DeriveEndpoints(tt.in)
		if ws != tt.wantWS || http != tt.wantHTTP {
			t.Errorf("DeriveEndpoints(%q) = (%q, %q), want (%q, %q)",
				tt.in, ws, http, tt.wantWS, tt.wantHTTP)
		}
	}
}

func TestRunOnceDiscoversAndNotifies(t *testing.T) {
	output, inject := io.Pipe()
	exited := make(chan struct{})

	orig := startCommand
	startCommand = func(ctx context.Context, bin string, args ...string) (io.ReadCloser, func() error, func(), error) {
		return output, func() error { <-exited; return nil }, func() { close(exited) }, nil
	}
	t.Cleanup(func() { startCommand = orig })

	var mu sync.Mutex
	var got [][2]string
	r := NewRunner("cloudflared", "http://localhost:8081", func(ws, http string) {
		mu.Lock()
		got = append(got, [2]string{ws, http})
		mu.Unlock()
	})

	errc := make(chan error, 1)
	go func() { errc <- r.runOnce(context.Background()) }()

	inject.Write([]byte("INF Starting tunnel\n"))
	inject.Write([]byte("INF https://witty-crab.trycloudflare.com assigned\n"))

	// Give the scanner a moment, then end the process.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("URL never reached the notify callback")
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(exited)
	inject.Close()
	if err := <-errc; err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := [2]string{"wss://witty-crab.trycloudflare.com", "https://witty-crab.trycloudflare.com"}
	if got[0] != want {
		t.Errorf("notify got %v, want %v", got[0], want)
	}
}

func TestRunOnceTimesOutWithoutURL(t *testing.T) {
	origTimeout := urlDiscoveryTimeout
	urlDiscoveryTimeout = 50 * time.Millisecond
	t.Cleanup(func() { urlDiscoveryTimeout = origTimeout })

	output, inject := io.Pipe()
	exited := make(chan struct{})
	var killed atomic.Bool

	orig := startCommand
	startCommand = func(ctx context.Context, bin string, args ...string) (io.ReadCloser, func() error, func(), error) {
		kill := func() {
			killed.Store(true)
			inject.Close()
			close(exited)
		}
		return output, func() error { <-exited; return nil }, kill, nil
	}
	t.Cleanup(func() { startCommand = orig })

	r := NewRunner("cloudflared", "http://localhost:8081", func(ws, http string) {
		t.Errorf("notify called with (%q, %q) despite no URL", ws, http)
	})

	err := r.runOnce(context.Background())
	if !apperrors.IsCode(err, apperrors.CodeTunnelNoURL) {
		t.Fatalf("err = %v, want code %s", err, apperrors.CodeTunnelNoURL)
	}
	if !killed.Load() {
		t.Error("wedged process should have been killed")
	}
}

func TestRunOnceStartFailureWrapped(t *testing.T) {
	orig := startCommand
	startCommand = func(ctx context.Context, bin string, args ...string) (io.ReadCloser, func() error, func(), error) {
		return nil, nil, nil, io.ErrUnexpectedEOF
	}
	t.Cleanup(func() { startCommand = orig })

	r := NewRunner("cloudflared", "http://localhost:8081", func(string, string) {})
	err := r.runOnce(context.Background())
	if !apperrors.IsCode(err, apperrors.CodeTunnelStartFailed) {
		t.Fatalf("err = %v, want code %s", err, apperrors.CodeTunnelStartFailed)
	}
}

func TestRunRestartsAfterExit(t *testing.T) {
	origTimeout := urlDiscoveryTimeout
	urlDiscoveryTimeout = time.Second
	t.Cleanup(func() { urlDiscoveryTimeout = origTimeout })

	var starts atomic.Int32
	orig := startCommand
	startCommand = func(ctx context.Context, bin string, args ...string) (io.ReadCloser, func() error, func(), error) {
		starts.Add(1)
		output, inject := io.Pipe()
		exited := make(chan struct{})
		go func() {
			inject.Write([]byte("https://brief-life.trycloudflare.com\n"))
			inject.Close()
			close(exited)
		}()
		return output, func() error { <-exited; return nil }, func() {}, nil
	}
	t.Cleanup(func() { startCommand = orig })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cleared atomic.Bool
	r := NewRunner("cloudflared", "http://localhost:8081", func(ws, http string) {
		if ws == "" && http == "" {
			cleared.Store(true)
		}
	})

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// First run exits immediately; the backoff schedules a restart at
	// one second. Wait for the second start, then stop the loop.
	deadline := time.After(5 * time.Second)
	for starts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("runner restarted %d times, want at least 2 starts", starts.Load())
		case <-time.After(20 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if !cleared.Load() {
		t.Error("endpoints should be cleared when the process exits")
	}
}
