package sdk

import (
	"context"

	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/internal/approval"
	"github.com/bhandras/usher/pkg/types"
)

// RequestApprovals hands a batch to the router without waiting for its
// outcome. cont fires exactly once when the batch resolves; it runs on the
// router's effect goroutine and must not block. Empty batches are rejected
// with approval.ErrEmptyBatch before anything reaches the router, and a full
// router mailbox surfaces as actor.ErrMailboxFull so the caller can retry.
func (c *Coordinator) RequestApprovals(sessionID string, requests []types.ApprovalRequest, cont func(types.ApprovalOutcome)) error {
	batch, err := approval.NewBatch(sessionID, requests, func(decisionCount int, allowAllOnce bool) {
		if cont != nil {
			cont(types.ApprovalOutcome{DecisionCount: decisionCount, AllowAllOnce: allowAllOnce})
		}
	})
	if err != nil {
		return err
	}
	return c.submit(approval.ShowApprovalUI(batch))
}

// AwaitApprovals implements Approver on the coordinator.
//
// The continuation feeds a buffered channel, so a batch resolved after the
// caller gave up never blocks the router.
func (c *Coordinator) AwaitApprovals(ctx context.Context, sessionID string, requests []types.ApprovalRequest) (types.ApprovalOutcome, error) {
	outcomes := make(chan types.ApprovalOutcome, 1)
	err := c.RequestApprovals(sessionID, requests, func(outcome types.ApprovalOutcome) {
		outcomes <- outcome
	})
	if err != nil {
		return types.ApprovalOutcome{}, err
	}

	select {
	case outcome := <-outcomes:
		return outcome, nil
	case <-ctx.Done():
		return types.ApprovalOutcome{}, ctx.Err()
	case <-c.router.Done():
		return types.ApprovalOutcome{}, actor.ErrStopped
	}
}

// Approve records an allow verdict for one request of the active batch.
func (c *Coordinator) Approve(requestID, message string) error {
	now := c.clock.Now().UnixMilli()
	return c.do(func(reply chan error) actor.Input {
		return approval.SubmitDecision(requestID, true, message, now, reply)
	})
}

// Deny records a deny verdict for one request of the active batch.
func (c *Coordinator) Deny(requestID, message string) error {
	now := c.clock.Now().UnixMilli()
	return c.do(func(reply chan error) actor.Input {
		return approval.SubmitDecision(requestID, false, message, now, reply)
	})
}

// AllowAllOnce approves everything pending in the active batch and resolves
// it with the allow-all flag set.
func (c *Coordinator) AllowAllOnce() error {
	now := c.clock.Now().UnixMilli()
	return c.do(func(reply chan error) actor.Input {
		return approval.AllowAllOnce(now, reply)
	})
}

// DismissApprovalUI drops the batches of one session, active and queued,
// resolving each with nothing approved. Batches of other sessions are
// untouched.
func (c *Coordinator) DismissApprovalUI(sessionID string) error {
	return c.do(func(reply chan error) actor.Input {
		return approval.DismissApprovalUI(sessionID, reply)
	})
}

// SetUIListener installs the approval snapshot consumer. The listener runs
// on the router goroutine and must return quickly.
func (c *Coordinator) SetUIListener(fn func(types.ApprovalUIState)) {
	c.runtime.SetUIListener(fn)
}

// ApprovalUIState returns the current approval UI view.
func (c *Coordinator) ApprovalUIState() types.ApprovalUIState {
	return approval.UISnapshot(c.router.State())
}
