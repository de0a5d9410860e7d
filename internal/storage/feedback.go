// Package storage persists the feedback archive. Session state is
// deliberately ephemeral, but operator feedback is the one thing worth
// keeping across restarts: ratings from past sessions feed back into
// how the next stream is run.
package storage

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver, registered for its side effects. Needs no
	// CGO, which keeps cross-compilation and testing simple.
	_ "modernc.org/sqlite"

	apperrors "github.com/sumsupee/chatoneverything/internal/errors"
)

// Feedback is one archived feedback submission.
type Feedback struct {
	// ID is a generated uuid, assigned on save if empty.
	ID string

	// SessionCode is the session the feedback was collected in.
	SessionCode string

	// Cycle is the feedback cycle the submission belongs to.
	Cycle int

	// Rating is the 1..5 star rating.
	Rating int

	// Comment is the optional free-text comment.
	Comment string

	// IP is the submitter's normalized IP.
	IP string

	// CreatedAt is when the submission was accepted.
	CreatedAt time.Time
}

// SQLiteStore archives feedback submissions in SQLite.
// It creates the database and table on first use and supports
// concurrent access through internal locking.
type SQLiteStore struct {
	db *sql.DB      // Database connection handle.
	mu sync.RWMutex // Guards all database operations for thread safety.
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// It initializes the schema if the table doesn't exist.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	log.Printf("storage: opening feedback archive at %s", path)

	// busy_timeout handles concurrent access from the running host and
	// the `feedback list` CLI command.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageOpenFailed, "open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageOpenFailed, "ping database", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates the feedback table if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id           TEXT PRIMARY KEY,
	session_code TEXT NOT NULL,
	cycle        INTEGER NOT NULL,
	rating       INTEGER NOT NULL,
	comment      TEXT NOT NULL DEFAULT '',
	ip           TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_code, cycle);
`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageOpenFailed, "init schema", err)
	}
	return nil
}

// SaveFeedback inserts one submission. A missing ID is assigned; a
// missing CreatedAt is set to now.
func (s *SQLiteStore) SaveFeedback(fb *Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO feedback (id, session_code, cycle, rating, comment, ip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.SessionCode, fb.Cycle, fb.Rating, fb.Comment, fb.IP, fb.CreatedAt.Unix(),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageSaveFailed, "insert feedback", err)
	}
	return nil
}

// ListFeedback returns archived submissions, newest first. An empty
// sessionCode returns all sessions.
func (s *SQLiteStore) ListFeedback(sessionCode string) ([]*Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, session_code, cycle, rating, comment, ip, created_at
	          FROM feedback`
	var args []any
	if sessionCode != "" {
		query += ` WHERE session_code = ?`
		args = append(args, sessionCode)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "query feedback", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		var fb Feedback
		var createdAt int64
		if err := rows.Scan(&fb.ID, &fb.SessionCode, &fb.Cycle, &fb.Rating,
			&fb.Comment, &fb.IP, &createdAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "scan feedback row", err)
		}
		fb.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, &fb)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "iterate feedback rows", err)
	}

	return result, nil
}

// AverageRating returns the mean rating for a session code, or 0 with
// count 0 when no feedback exists.
func (s *SQLiteStore) AverageRating(sessionCode string) (avg float64, count int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM feedback WHERE session_code = ?`,
		sessionCode,
	)
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "aggregate ratings", err)
	}
	return avg, count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
