// Package web serves the session-gated pages and the feedback
// endpoint. It shares the session state and moderation store with the
// broadcast server but never calls into it directly.
package web

import (
	"embed"
	"html/template"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sumsupee/chatoneverything/internal/audit"
	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
	"github.com/sumsupee/chatoneverything/internal/moderation"
	"github.com/sumsupee/chatoneverything/internal/session"
	"github.com/sumsupee/chatoneverything/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// ClientIPFunc resolves the real client IP for a request. The server
// package provides the canonical implementation.
type ClientIPFunc func(r *http.Request) string

// Handler is the HTTP surface: GET / and GET /admin gated on the
// session code, POST /feedback.
type Handler struct {
	state      *session.State
	moderation *moderation.Store
	clientIP   ClientIPFunc

	// archive keeps feedback across restarts. Optional; nil disables
	// the SQLite archive but not the JSONL log.
	archive *storage.SQLiteStore

	// logDir is where per-cycle feedback JSONL logs are created.
	logDir string

	mu          sync.Mutex
	feedbackLog *audit.Logger

	templates *template.Template
}

// NewHandler builds the HTTP surface. logDir may be empty to disable
// feedback JSONL logging (tests).
func NewHandler(state *session.State, mod *moderation.Store, clientIP ClientIPFunc, archive *storage.SQLiteStore, logDir string) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "parsing page templates", err)
	}
	return &Handler{
		state:      state,
		moderation: mod,
		clientIP:   clientIP,
		archive:    archive,
		logDir:     logDir,
		templates:  tmpl,
	}, nil
}

// Routes returns the mux with all HTTP endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handlePage("chat.html"))
	mux.HandleFunc("/admin", h.handlePage("admin.html"))
	mux.HandleFunc("/feedback", h.handleFeedback)
	return mux
}

// OnFeedbackCycle rotates the per-cycle feedback JSONL log. Wired to
// the broadcast server's feedback-cycle callback.
func (h *Handler) OnFeedbackCycle(cycle int) {
	if h.logDir == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.feedbackLog != nil {
		h.feedbackLog.Close()
		h.feedbackLog = nil
	}

	logger, err := audit.OpenFeedbackLog(h.logDir, h.state.Identity().Code(), cycle)
	if err != nil {
		log.Printf("web: opening feedback log for cycle %d: %v", cycle, err)
		return
	}
	h.feedbackLog = logger
	log.Printf("web: feedback cycle %d logging to %s", cycle, logger.Path())
}

// Close releases the feedback log.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.feedbackLog != nil {
		err := h.feedbackLog.Close()
		h.feedbackLog = nil
		return err
	}
	return nil
}

// pageData feeds the page templates.
type pageData struct {
	SessionCode string

	// WSEndpoint is the WebSocket URL the page should connect to,
	// chosen per request (tunnel host when the request came through
	// the tunnel, otherwise the host the browser already used).
	WSEndpoint string

	// ForceEndpoint tells a page served over the LAN to discard any
	// cached endpoint; a phone moving between tunnel and LAN would
	// otherwise keep dialing the stale one.
	ForceEndpoint bool
}

// handlePage gates a page on ?s=<sessionCode>: absent serves the join
// form, wrong serves 403, correct serves the page with the injected
// WebSocket endpoint.
func (h *Handler) handlePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// The root pattern matches everything; only the exact paths
		// serve pages.
		if page == "chat.html" && r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		code := strings.TrimSpace(r.URL.Query().Get("s"))
		if code == "" {
			h.render(w, "join.html", pageData{})
			return
		}
		if !h.state.Identity().CheckCode(code) {
			w.WriteHeader(http.StatusForbidden)
			h.render(w, "forbidden.html", pageData{})
			return
		}

		endpoint, viaTunnel := h.wsEndpoint(r)
		h.render(w, page, pageData{
			SessionCode:   h.state.Identity().Code(),
			WSEndpoint:    endpoint,
			ForceEndpoint: !viaTunnel,
		})
	}
}

func (h *Handler) render(w http.ResponseWriter, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, page, data); err != nil {
		log.Printf("web: rendering %s: %v", page, err)
	}
}

// wsEndpoint picks the WebSocket URL for this request. A request that
// arrived through the tunnel gets the tunnel WS endpoint; anything
// else gets the host the browser dialed with the WS port swapped in.
func (h *Handler) wsEndpoint(r *http.Request) (endpoint string, viaTunnel bool) {
	tunnel := h.state.TunnelURLs()
	if tunnel.WS != "" && tunnel.HTTP != "" && hostMatches(r.Host, tunnel.HTTP) {
		return tunnel.WS, true
	}

	host := r.Host
	if hostOnly, _, err := net.SplitHostPort(host); err == nil {
		host = hostOnly
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(h.state.WSPort())), false
}

// hostMatches reports whether the request host equals the host part of
// the given URL.
func hostMatches(requestHost, rawURL string) bool {
	urlHost := rawURL
	if i := strings.Index(urlHost, "://"); i >= 0 {
		urlHost = urlHost[i+3:]
	}
	urlHost = strings.TrimSuffix(strings.SplitN(urlHost, "/", 2)[0], "/")

	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if h, _, err := net.SplitHostPort(urlHost); err == nil {
		urlHost = h
	}
	return strings.EqualFold(requestHost, urlHost)
}
