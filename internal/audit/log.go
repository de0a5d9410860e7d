// Package audit writes append-only newline-delimited JSON event logs.
// One file is opened per chat session and one per feedback cycle,
// placed in the first writable candidate directory (current working
// directory, then the executable's directory, then the user data
// directory). Log writes are best effort: a failed append is logged
// and never fails the operation that produced the event.
package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// Entry is the envelope for one logged event.
type Entry struct {
	// Time is when the event was recorded.
	Time time.Time `json:"time"`

	// Event names what happened: "message", "message-deleted",
	// "block-ip", "unblock-ip", "settings", "join", "admin-auth",
	// "feedback", ...
	Event string `json:"event"`

	// Data carries event-specific fields.
	Data any `json:"data,omitempty"`
}

// WritableDir returns the first directory from the candidate order that
// accepts file creation. An explicit non-empty dir is tried first and
// is an error if unusable (the operator asked for it specifically).
func WritableDir(explicit string) (string, error) {
	if explicit != "" {
		if dirWritable(explicit) {
			return explicit, nil
		}
		return "", apperrors.New(apperrors.CodeAuditNoWritableDir,
			fmt.Sprintf("configured log_dir %q is not writable", explicit))
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Dir(exe))
	}
	if data, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(data, "chatoneverything"))
	}

	for _, dir := range candidates {
		// The user-data candidate may not exist yet.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		if dirWritable(dir) {
			return dir, nil
		}
	}

	return "", apperrors.New(apperrors.CodeAuditNoWritableDir, "no writable log directory found")
}

// dirWritable probes a directory by creating and removing a temp file.
// Permission bits alone are not trusted; read-only mounts lie.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".audit-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// SessionLogName builds the chat session log filename.
func SessionLogName(code string, now time.Time) string {
	return fmt.Sprintf("chat-session-%s-%d.jsonl", code, now.Unix())
}

// FeedbackLogName builds the per-cycle feedback log filename.
func FeedbackLogName(code string, cycle int, now time.Time) string {
	return fmt.Sprintf("feedback-session-%s-cycle-%d-%d.jsonl", code, cycle, now.Unix())
}

// Logger appends JSONL entries to a single file. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string

	// now returns the current time. Overridable for tests.
	now func() time.Time
}

// Open creates (or appends to) the log file at dir/name.
func Open(dir, name string) (*Logger, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAuditWriteFailed,
			fmt.Sprintf("open log file %s", path), err)
	}

	log.Printf("audit: logging to %s", path)

	return &Logger{
		file: f,
		enc:  json.NewEncoder(f),
		path: path,
		now:  time.Now,
	}, nil
}

// OpenSessionLog opens the chat event log for the given session code.
func OpenSessionLog(dir, code string) (*Logger, error) {
	return Open(dir, SessionLogName(code, time.Now()))
}

// OpenFeedbackLog opens the feedback event log for the given cycle.
func OpenFeedbackLog(dir, code string, cycle int) (*Logger, error) {
	return Open(dir, FeedbackLogName(code, cycle, time.Now()))
}

// SetTimeNow overrides the logger's clock. Tests only.
func (l *Logger) SetTimeNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Path returns the log file's full path.
func (l *Logger) Path() string {
	return l.path
}

// Write appends one event. Errors are returned for the caller to log;
// they must never abort the operation being audited.
func (l *Logger) Write(event string, data any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Time: l.now(), Event: event, Data: data}
	if err := l.enc.Encode(&entry); err != nil {
		return apperrors.Wrap(apperrors.CodeAuditWriteFailed, "append event", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
