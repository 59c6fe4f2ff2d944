package sdk

import (
	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/internal/approval"
	"github.com/bhandras/usher/internal/draft"
)

// SwitchSession makes sessionID the current session.
//
// The active approval batch, if any, is parked first so it survives the
// switch, then the target session's queued batches are brought forward. A
// parked batch of the target session reappears immediately because parking
// gave it front priority. No continuation fires anywhere in this sequence.
func (c *Coordinator) SwitchSession(sessionID string, messageCount int) error {
	if err := c.do(approval.ParkActiveApprovalBatch); err != nil {
		return err
	}
	c.drafts.SetCurrentSession(sessionID, messageCount)
	return c.do(func(reply chan error) actor.Input {
		return approval.ProcessQueuedApprovals(sessionID, reply)
	})
}

// LoadSession makes a persisted session current. Same contract as
// SwitchSession.
func (c *Coordinator) LoadSession(sessionID string, messageCount int) error {
	return c.SwitchSession(sessionID, messageCount)
}

// StartNewSession parks the active approval batch and replaces the current
// session with a fresh draft, returning its id.
func (c *Coordinator) StartNewSession() (string, error) {
	if err := c.do(approval.ParkActiveApprovalBatch); err != nil {
		return "", err
	}
	return c.drafts.StartNewSession(), nil
}

// DeleteSession removes a session from coordination: its generation is
// cancelled, its approval batches are dropped with nothing approved, and
// the draft tracker forgets it if it was current.
func (c *Coordinator) DeleteSession(sessionID string) error {
	c.runner.Cancel(sessionID)
	if err := c.DismissApprovalUI(sessionID); err != nil {
		return err
	}
	if c.drafts.CurrentSessionID() == sessionID {
		c.drafts.ClearCurrentSession()
	}
	return nil
}

// AddMessage records a message on the current session and returns the new
// count. The first message turns a draft into a saved session.
func (c *Coordinator) AddMessage() int {
	return c.drafts.AddMessage()
}

// CurrentSessionID returns the current session id, or empty when none.
func (c *Coordinator) CurrentSessionID() string {
	return c.drafts.CurrentSessionID()
}

// IsDraft reports whether the current session has no messages yet.
func (c *Coordinator) IsDraft() bool {
	return c.drafts.IsDraft()
}

// MessageCount returns the current session's message count.
func (c *Coordinator) MessageCount() int {
	return c.drafts.MessageCount()
}

// DraftState returns the draft tracker's consistent snapshot.
func (c *Coordinator) DraftState() draft.Snapshot {
	return c.drafts.Snapshot()
}
