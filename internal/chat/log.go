// Package chat maintains the in-memory message log for one session:
// monotonic id assignment, the full message index used for moderation,
// and a bounded history ring used as conversational context for the
// chat agent. State is process-lifetime only.
package chat

import (
	"strings"
	"sync"
	"time"
)

// WordLimit is the hard cap on words per message. Longer messages are
// truncated, not rejected.
const WordLimit = 50

// HistorySize is the capacity of the bounded history ring handed to the
// chat agent as context. Oldest entries are evicted first.
const HistorySize = 50

// Message is one chat message as stored in the log.
type Message struct {
	// ID is unique and strictly increasing for the process lifetime,
	// starting at 1.
	ID int64 `json:"id"`

	// User is the display name supplied by the sender. Attacker
	// controlled free text.
	User string `json:"user"`

	// Text is the message body after whitespace normalization and the
	// word cap.
	Text string `json:"text"`

	// IP is the normalized origin IP. Empty for system- or
	// agent-authored messages.
	IP string `json:"ip,omitempty"`

	// Timestamp is when the message was accepted.
	Timestamp time.Time `json:"timestamp"`

	// Deleted is set by admin action. Entries are never physically
	// removed, so deletion events can still reference the original
	// content for audit logging.
	Deleted bool `json:"deleted,omitempty"`
}

// Normalize collapses all whitespace runs in text to single spaces and
// truncates the result to the word cap. An empty or whitespace-only
// input normalizes to "".
func Normalize(text string) string {
	words := strings.Fields(text)
	if len(words) > WordLimit {
		words = words[:WordLimit]
	}
	return strings.Join(words, " ")
}

// Log is the message store for one session. Safe for concurrent use.
type Log struct {
	mu sync.Mutex

	// nextID is the id handed to the next accepted message.
	nextID int64

	// byID indexes every message ever accepted, including deleted ones.
	byID map[int64]*Message

	// ring is the bounded recent-history window for agent context.
	ring []*Message

	// now returns the current time. Overridable for tests.
	now func() time.Time
}

// NewLog creates an empty message log. Ids start at 1.
func NewLog() *Log {
	return &Log{
		nextID: 1,
		byID:   make(map[int64]*Message),
		now:    time.Now,
	}
}

// SetTimeNow overrides the log's clock. Tests only.
func (l *Log) SetTimeNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Append stores a new message and returns it with its assigned id.
// The text must already be normalized (see Normalize); Append does not
// reject empty text, that policy belongs to the caller.
// Ids are assigned in the exact order Append is called.
func (l *Log) Append(user, text, ip string) *Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := &Message{
		ID:        l.nextID,
		User:      user,
		Text:      text,
		IP:        ip,
		Timestamp: l.now(),
	}
	l.nextID++
	l.byID[msg.ID] = msg

	l.ring = append(l.ring, msg)
	if len(l.ring) > HistorySize {
		l.ring = l.ring[1:]
	}

	return msg
}

// Get returns a copy of the message with the given id.
func (l *Log) Get(id int64) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.byID[id]
	if !ok {
		return Message{}, false
	}
	return *msg, true
}

// MarkDeleted flags the message as deleted in place and returns a copy
// of the entry as it was before the call, so deletion events can
// reference the original content for audit logging. A missing id is a
// no-op returning ok=false. Deleting twice returns the entry with
// Deleted already set, letting callers skip double-counting.
func (l *Log) MarkDeleted(id int64) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg, ok := l.byID[id]
	if !ok {
		return Message{}, false
	}
	before := *msg
	msg.Deleted = true
	return before, true
}

// Recent returns the non-deleted messages in the history ring, oldest
// first. This is the conversational context handed to the chat agent.
func (l *Log) Recent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, 0, len(l.ring))
	for _, msg := range l.ring {
		if msg.Deleted {
			continue
		}
		out = append(out, *msg)
	}
	return out
}
