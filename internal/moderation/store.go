// Package moderation holds the pure in-memory moderation state for one
// session: the blocked-IP set, per-IP deletion counters, per-IP
// last-message timestamps, and the per-cycle feedback submission set.
// It does no I/O; the broadcast server and the HTTP surface both consume
// it, so every method is safe for concurrent use.
package moderation

import (
	"sort"
	"sync"
	"time"
)

// AutoBlockThreshold is the number of admin-deleted messages from one IP
// that triggers an automatic block. Policy constant, not configurable.
const AutoBlockThreshold = 2

// Store is the moderation state for one session. The zero value is not
// usable; construct with NewStore.
type Store struct {
	mu sync.Mutex

	// blocked is the set of banned IPs.
	blocked map[string]struct{}

	// deletions counts admin deletes per origin IP. Reaching
	// AutoBlockThreshold blocks the IP; unblocking resets the counter.
	deletions map[string]int

	// lastMessage records the last accepted message time per IP, for
	// slow-mode enforcement.
	lastMessage map[string]time.Time

	// cycleID identifies the current feedback cycle. Starts at 0 and is
	// incremented every time feedback collection is turned on.
	cycleID int

	// submitted is the set of IPs that already submitted feedback in the
	// current cycle. Reset on every new cycle.
	submitted map[string]struct{}

	// now returns the current time. Overridable for tests.
	now func() time.Time
}

// NewStore creates an empty moderation store.
func NewStore() *Store {
	return &Store{
		blocked:     make(map[string]struct{}),
		deletions:   make(map[string]int),
		lastMessage: make(map[string]time.Time),
		submitted:   make(map[string]struct{}),
		now:         time.Now,
	}
}

// SetTimeNow overrides the store's clock. Tests only.
func (s *Store) SetTimeNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// IsBlocked reports whether the IP is currently blocked.
func (s *Store) IsBlocked(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocked[ip]
	return ok
}

// Block adds the IP to the blocked set. Returns false if the IP was
// already blocked (idempotent no-op).
func (s *Store) Block(ip string) bool {
	if ip == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocked[ip]; ok {
		return false
	}
	s.blocked[ip] = struct{}{}
	return true
}

// Unblock removes the IP from the blocked set and resets its deletion
// counter to zero (forgiveness, not amnesty tracking). Returns false if
// the IP was not blocked.
func (s *Store) Unblock(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocked[ip]; !ok {
		return false
	}
	delete(s.blocked, ip)
	delete(s.deletions, ip)
	return true
}

// BlockedIPs returns the blocked set as a sorted slice. The result is a
// copy; callers may hold on to it.
func (s *Store) BlockedIPs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ips := make([]string, 0, len(s.blocked))
	for ip := range s.blocked {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}

// RecordDeletion increments the deletion counter for the IP after an
// admin delete. Returns true when the counter reaches the auto-block
// threshold and the IP was newly blocked as a result. Deleting messages
// from an already-blocked IP never re-triggers.
func (s *Store) RecordDeletion(ip string) bool {
	if ip == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletions[ip]++

	if _, alreadyBlocked := s.blocked[ip]; alreadyBlocked {
		return false
	}
	if s.deletions[ip] < AutoBlockThreshold {
		return false
	}

	s.blocked[ip] = struct{}{}
	return true
}

// DeletionCount returns the current deletion counter for the IP.
func (s *Store) DeletionCount(ip string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletions[ip]
}

// CheckSlowMode reports whether a message from the IP is allowed under
// the given cooldown. When the message arrives too early, ok is false
// and remaining is the time left until the IP may send again.
// The last-message timestamp is NOT updated here; call RecordMessage
// once the message is actually accepted.
func (s *Store) CheckSlowMode(ip string, cooldown time.Duration) (remaining time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.lastMessage[ip]
	if !seen {
		return 0, true
	}

	elapsed := s.now().Sub(last)
	if elapsed >= cooldown {
		return 0, true
	}
	return cooldown - elapsed, false
}

// RecordMessage updates the last-accepted-message timestamp for the IP.
func (s *Store) RecordMessage(ip string) {
	if ip == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMessage[ip] = s.now()
}

// NextFeedbackCycle starts a new feedback cycle: the cycle id advances
// and the submission set is cleared. Returns the new cycle id.
func (s *Store) NextFeedbackCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycleID++
	s.submitted = make(map[string]struct{})
	return s.cycleID
}

// FeedbackCycle returns the current feedback cycle id.
func (s *Store) FeedbackCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycleID
}

// RecordFeedback marks the IP as having submitted feedback in the
// current cycle. Returns false if the IP already submitted this cycle.
func (s *Store) RecordFeedback(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submitted[ip]; ok {
		return false
	}
	s.submitted[ip] = struct{}{}
	return true
}
