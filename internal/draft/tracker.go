// Package draft tracks whether the current session is an unsaved draft.
//
// A session is a draft exactly while its message count is zero; the count is
// the only source of truth and draft-ness is always derived from it, never
// stored.
package draft

import (
	"sync"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	CurrentSessionID string `json:"current_session_id"`
	IsDraft          bool   `json:"is_draft"`
	MessageCount     int    `json:"message_count"`
}

// Tracker follows the current session and its message count. Safe for
// concurrent use.
type Tracker struct {
	mu           sync.Mutex
	currentID    string
	messageCount int
}

// NewTracker returns a tracker with no current session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// StartNewSession replaces the current session with a fresh draft and
// returns its id. Any previous session is discarded unconditionally; router
// and generation state tied to it is the caller's concern.
func (t *Tracker) StartNewSession() string {
	id := uuid.NewString()
	t.mu.Lock()
	t.currentID = id
	t.messageCount = 0
	t.mu.Unlock()
	return id
}

// AddMessage increments the message count and returns the new value. The
// first message moves the session from draft to saved; the count never
// decreases within a session.
func (t *Tracker) AddMessage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageCount++
	return t.messageCount
}

// SetCurrentSession makes sessionID current with the given message count,
// discarding any draft. Negative counts are treated as zero.
func (t *Tracker) SetCurrentSession(sessionID string, messageCount int) {
	if messageCount < 0 {
		messageCount = 0
	}
	t.mu.Lock()
	t.currentID = sessionID
	t.messageCount = messageCount
	t.mu.Unlock()
}

// LoadSession makes a persisted session current. Same contract as
// SetCurrentSession.
func (t *Tracker) LoadSession(sessionID string, messageCount int) {
	t.SetCurrentSession(sessionID, messageCount)
}

// ClearCurrentSession forgets the current session entirely.
func (t *Tracker) ClearCurrentSession() {
	t.mu.Lock()
	t.currentID = ""
	t.messageCount = 0
	t.mu.Unlock()
}

// CurrentSessionID returns the id of the current session, or the empty
// string when none is selected.
func (t *Tracker) CurrentSessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentID
}

// MessageCount returns the message count of the current session.
func (t *Tracker) MessageCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messageCount
}

// IsDraft reports whether the current session is an unsaved draft, which
// holds exactly while the message count is zero.
func (t *Tracker) IsDraft() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messageCount == 0
}

// Snapshot returns the tracker state as one consistent view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		CurrentSessionID: t.currentID,
		IsDraft:          t.messageCount == 0,
		MessageCount:     t.messageCount,
	}
}
