package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/sumsupee/chatoneverything/internal/audit"
	"github.com/sumsupee/chatoneverything/internal/chat"
	"github.com/sumsupee/chatoneverything/internal/config"
	"github.com/sumsupee/chatoneverything/internal/mdns"
	"github.com/sumsupee/chatoneverything/internal/moderation"
	"github.com/sumsupee/chatoneverything/internal/overlay"
	"github.com/sumsupee/chatoneverything/internal/remote"
	"github.com/sumsupee/chatoneverything/internal/server"
	"github.com/sumsupee/chatoneverything/internal/session"
	"github.com/sumsupee/chatoneverything/internal/storage"
	"github.com/sumsupee/chatoneverything/internal/tunnel"
	"github.com/sumsupee/chatoneverything/internal/web"
)

// runStart implements "chatoneverything start": the full host wiring.
// One process hosts exactly one session; the code and admin password
// are generated here and live until the process exits.
func runStart(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.chatoneverything/config.toml)")
	wsPort := fs.Int("ws-port", 0, "WebSocket port override (HTTP surface is always ws-port+1)")
	mdnsFlag := fs.Bool("mdns", false, "Advertise the host on the local network via mDNS")
	qrFlag := fs.Bool("qr", false, "Render the join URL as a QR code on startup")
	tunnelFlag := fs.String("tunnel", "", "Path to cloudflared binary; enables an outbound tunnel")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: chatoneverything start [options]

Host a session: broadcast server, gated pages, feedback collection and
remote input control. The session code and admin password are printed
once at startup.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *wsPort != 0 {
		cfg.WSPort = *wsPort
	}
	if *mdnsFlag {
		cfg.MdnsEnabled = true
	}
	if *qrFlag {
		cfg.QR = true
	}
	if *tunnelFlag != "" {
		cfg.Tunnel = *tunnelFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	identity, err := session.NewIdentity()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	lanIP := GetPreferredOutboundIP()
	state := session.NewState(identity, session.Settings{
		SlowModeSeconds: cfg.SlowModeSeconds,
		RemoteEnabled:   cfg.RemoteEnabled,
		AgentEnabled:    cfg.AgentEnabled,
	}, lanIP, cfg.WSPort)

	mod := moderation.NewStore()
	chatLog := chat.NewLog()

	logDir, err := audit.WritableDir(cfg.LogDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	sessionLog, err := audit.OpenSessionLog(logDir, identity.Code())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer sessionLog.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.FeedbackDB), 0o755); err != nil {
		fmt.Fprintf(stderr, "Error: preparing feedback archive directory: %v\n", err)
		return 1
	}
	archive, err := storage.NewSQLiteStore(cfg.FeedbackDB)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer archive.Close()

	backend, avail := remote.DetectBackend()
	if !avail.Available {
		log.Printf("start: remote input unavailable: %s", avail.Detail)
	}
	controller := remote.NewController(backend)

	window := &overlay.Nop{}

	srv := server.NewServer(fmt.Sprintf(":%d", cfg.WSPort), server.Deps{
		State:              state,
		Moderation:         mod,
		ChatLog:            chatLog,
		AuditLog:           sessionLog,
		Window:             window,
		Remote:             controller,
		TrustedProxyHeader: cfg.TrustedProxyHeader,
	})

	clientIP := func(r *http.Request) string {
		return server.ClientIP(r, cfg.TrustedProxyHeader)
	}
	pages, err := web.NewHandler(state, mod, clientIP, archive, logDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer pages.Close()
	srv.SetFeedbackCycleHandler(pages.OnFeedbackCycle)

	if err := <-srv.StartAsync(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort()),
		Handler: pages.Routes(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("start: http surface: %v", err)
		}
	}()
	defer httpServer.Close()

	if cfg.MdnsEnabled {
		advertiser := mdns.NewAdvertiser(mdns.Config{
			HTTPPort: cfg.HTTPPort(),
			WSPort:   cfg.WSPort,
		})
		if err := advertiser.Start(); err != nil {
			log.Printf("start: mdns advertisement failed: %v", err)
		} else {
			defer advertiser.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Tunnel != "" {
		runner := tunnel.NewRunner(cfg.Tunnel,
			fmt.Sprintf("http://localhost:%d", cfg.HTTPPort()), state.SetTunnelURLs)
		go runner.Run(ctx)
	}

	printBanner(stdout, state, avail, cfg.QR)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Fprintln(stdout, "\nShutting down.")
	return 0
}

// loadConfig resolves the config path and loads it.
func loadConfig(explicit string) (*config.Config, error) {
	path := explicit
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// printBanner shows the operator everything needed to run the session:
// join URL, session code, admin password (shown once) and the remote
// input status.
func printBanner(w io.Writer, state *session.State, avail remote.Availability, qr bool) {
	identity := state.Identity()
	urls := state.URLs()
	joinURL := fmt.Sprintf("%s/?s=%s", urls.HTTP, identity.Code())

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "  Chat On Everything")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintf(w, "  Join URL:       %s\n", joinURL)
	fmt.Fprintf(w, "  Session code:   %s\n", identity.Code())
	fmt.Fprintf(w, "  Admin password: %s\n", identity.AdminPassword())
	fmt.Fprintf(w, "  Admin page:     %s/admin?s=%s\n", urls.HTTP, identity.Code())
	fmt.Fprintf(w, "  Remote input:   %s\n", avail)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")

	if qr {
		printJoinQR(w, joinURL)
	}
}

// printJoinQR renders the join URL as a terminal QR code so phones can
// join without typing anything.
func printJoinQR(w io.Writer, joinURL string) {
	code, err := qrcode.New(joinURL, qrcode.Medium)
	if err != nil {
		log.Printf("start: qr generation failed: %v", err)
		return
	}
	// ToSmallString(false) produces compact output without a border.
	fmt.Fprint(w, code.ToSmallString(false))
	fmt.Fprintln(w, "")
}
