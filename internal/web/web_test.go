package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sumsupee/chatoneverything/internal/moderation"
	"github.com/sumsupee/chatoneverything/internal/session"
	"github.com/sumsupee/chatoneverything/internal/storage"
)

func newTestHandler(t *testing.T, settings session.Settings) (*Handler, *session.State, *moderation.Store) {
	t.Helper()

	identity, err := session.NewIdentity()
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	state := session.NewState(identity, settings, "192.168.1.10", 8080)
	mod := moderation.NewStore()

	clientIP := func(r *http.Request) string {
		return r.Header.Get("X-Test-IP")
	}

	h, err := NewHandler(state, mod, clientIP, nil, "")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, state, mod
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Host = "192.168.1.10:8081"
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)
	return w
}

func TestPageWithoutCodeServesJoinForm(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{})
	w := get(t, h, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "session code") {
		t.Error("response should be the join form")
	}
}

func TestPageWithWrongCodeForbidden(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{})
	for _, path := range []string{"/?s=WRONG9", "/admin?s=WRONG9"} {
		w := get(t, h, path)
		if w.Code != http.StatusForbidden {
			t.Errorf("GET %s status = %d, want 403", path, w.Code)
		}
	}
}

// renderedJS undoes the template escaping inside the injected script
// block so assertions can match plain URLs. The JS escaper writes "/"
// as "\/" and pads booleans with spaces.
func renderedJS(w *httptest.ResponseRecorder) string {
	s := strings.ReplaceAll(w.Body.String(), `\/`, "/")
	return strings.ReplaceAll(s, " ", "")
}

func TestPageInjectsLANEndpoint(t *testing.T) {
	h, state, _ := newTestHandler(t, session.Settings{})
	w := get(t, h, "/?s="+state.Identity().Code())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := renderedJS(w)
	if !strings.Contains(body, "ws://192.168.1.10:8080") {
		t.Errorf("page should inject the LAN WS endpoint, got:\n%s", body)
	}
	// LAN requests always force-override a cached endpoint.
	if !strings.Contains(body, "window.FORCE_ENDPOINT=true;") {
		t.Error("LAN page should force the endpoint override")
	}
}

func TestPageInjectsTunnelEndpointForTunnelRequests(t *testing.T) {
	h, state, _ := newTestHandler(t, session.Settings{})
	state.SetTunnelURLs("wss://demo.trycloudflare.com", "https://demo.trycloudflare.com")

	r := httptest.NewRequest(http.MethodGet, "/?s="+state.Identity().Code(), nil)
	r.Host = "demo.trycloudflare.com"
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)

	body := renderedJS(w)
	if !strings.Contains(body, "wss://demo.trycloudflare.com") {
		t.Errorf("tunnel request should get the tunnel WS endpoint, got:\n%s", body)
	}
	if !strings.Contains(body, "window.FORCE_ENDPOINT=false;") {
		t.Error("tunnel page should not force the endpoint override")
	}
}

func TestPageUnknownPathNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{})
	w := get(t, h, "/nonsense")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func postFeedback(t *testing.T, h *Handler, ip, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	if ip != "" {
		r.Header.Set("X-Test-IP", ip)
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, r)
	return w
}

func feedbackCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp feedbackResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return resp.Code
}

func TestFeedbackRejectsWrongMethod(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{FeedbackEnabled: true})
	w := get(t, h, "/feedback")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestFeedbackRejectsWhenDisabled(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{})
	w := postFeedback(t, h, "203.0.113.1", `{"rating":5}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := feedbackCode(t, w); code != "feedback.disabled" {
		t.Errorf("code = %q", code)
	}
}

func TestFeedbackRequiresClientIP(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{FeedbackEnabled: true})
	w := postFeedback(t, h, "", `{"rating":5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := feedbackCode(t, w); code != "feedback.no_client_ip" {
		t.Errorf("code = %q", code)
	}
}

func TestFeedbackRejectsOversizedBody(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{FeedbackEnabled: true})
	big := `{"rating":5,"comment":"` + strings.Repeat("x", MaxFeedbackBodyBytes+1) + `"}`
	w := postFeedback(t, h, "203.0.113.1", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestFeedbackRejectsBadBody(t *testing.T) {
	h, _, _ := newTestHandler(t, session.Settings{FeedbackEnabled: true})
	for _, body := range []string{`not json`, `{"rating":0}`, `{"rating":6}`} {
		w := postFeedback(t, h, "203.0.113.1", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestFeedbackDuplicatePerCycle(t *testing.T) {
	h, _, mod := newTestHandler(t, session.Settings{FeedbackEnabled: true})
	mod.NextFeedbackCycle()

	w := postFeedback(t, h, "203.0.113.1", `{"rating":4,"comment":"nice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("first submission status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = postFeedback(t, h, "203.0.113.1", `{"rating":2}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}
	if code := feedbackCode(t, w); code != "feedback.already_submitted" {
		t.Errorf("code = %q", code)
	}

	// A new cycle admits the same IP again.
	mod.NextFeedbackCycle()
	w = postFeedback(t, h, "203.0.113.1", `{"rating":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("post-cycle submission status = %d, want 200", w.Code)
	}
}

func TestFeedbackArchivesToStore(t *testing.T) {
	identity, err := session.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	state := session.NewState(identity, session.Settings{FeedbackEnabled: true}, "192.168.1.10", 8080)
	mod := moderation.NewStore()
	mod.NextFeedbackCycle()

	archive, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	clientIP := func(r *http.Request) string { return r.Header.Get("X-Test-IP") }
	h, err := NewHandler(state, mod, clientIP, archive, "")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	w := postFeedback(t, h, "203.0.113.1", `{"rating":4,"comment":"great show"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	rows, err := archive.ListFeedback(identity.Code())
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(rows) != 1 || rows[0].Rating != 4 || rows[0].Comment != "great show" || rows[0].Cycle != 1 {
		t.Fatalf("archived rows = %+v", rows)
	}
}

func TestFeedbackCycleRotatesJSONLLog(t *testing.T) {
	identity, err := session.NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	state := session.NewState(identity, session.Settings{FeedbackEnabled: true}, "192.168.1.10", 8080)
	mod := moderation.NewStore()

	dir := t.TempDir()
	clientIP := func(r *http.Request) string { return r.Header.Get("X-Test-IP") }
	h, err := NewHandler(state, mod, clientIP, nil, dir)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	cycle := mod.NextFeedbackCycle()
	h.OnFeedbackCycle(cycle)

	w := postFeedback(t, h, "203.0.113.1", `{"rating":3,"comment":"ok"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	h.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "feedback-session-*.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("feedback log files = %v (err %v), want exactly one", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"rating":3`) {
		t.Errorf("log content = %s", data)
	}
}
