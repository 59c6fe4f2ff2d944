package approval

import (
	"github.com/google/uuid"

	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/pkg/types"
)

// NewBatch builds a batch for the given session from a generation turn's
// requests. The request slice is copied. Batches must carry at least one
// request and request ids must be unique within the batch.
func NewBatch(sessionID string, requests []types.ApprovalRequest, cont Continuation) (Batch, error) {
	if len(requests) == 0 {
		return Batch{}, ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := seen[req.ID]; dup {
			return Batch{}, ErrDuplicateRequest
		}
		seen[req.ID] = struct{}{}
	}
	copied := make([]types.ApprovalRequest, len(requests))
	copy(copied, requests)
	return Batch{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Requests:  copied,
		Continue:  cont,
	}, nil
}

// ShowApprovalUI admits batch into the router: it becomes active, is queued
// behind another session's batch, or supersedes a stale same-session batch.
func ShowApprovalUI(batch Batch) actor.Input {
	return cmdShowBatch{Batch: batch}
}

// ParkActiveApprovalBatch suspends the active batch to the front of the
// queue without resolving it. A no-op when the slot is already empty.
func ParkActiveApprovalBatch(reply chan error) actor.Input {
	return cmdParkActive{Reply: reply}
}

// ProcessQueuedApprovals re-admits the queued batches of sessionID,
// starting the first when the slot is free.
func ProcessQueuedApprovals(sessionID string, reply chan error) actor.Input {
	return cmdProcessQueued{SessionID: sessionID, Reply: reply}
}

// SubmitDecision records a verdict for one request of the active batch.
// Deciding the last pending request completes the batch. A repeated decision
// for the same request overwrites the earlier verdict.
func SubmitDecision(requestID string, allow bool, message string, nowMs int64, reply chan error) actor.Input {
	return cmdDecide{RequestID: requestID, Allow: allow, Message: message, NowMs: nowMs, Reply: reply}
}

// AllowAllOnce approves every pending request of the active batch and
// completes it with the allow-all flag set.
func AllowAllOnce(nowMs int64, reply chan error) actor.Input {
	return cmdAllowAllOnce{NowMs: nowMs, Reply: reply}
}

// DismissApprovalUI force-completes the batches routing to sessionID, both
// active and queued. Other sessions' batches are untouched. The empty
// session id dismisses only untagged batches.
func DismissApprovalUI(sessionID string, reply chan error) actor.Input {
	return cmdDismiss{SessionID: sessionID, Reply: reply}
}

// DismissAll force-completes the active batch and every queued batch and
// empties the queue. Reserved for teardown paths such as coordinator
// shutdown; never use it for a per-session cancel.
func DismissAll(reply chan error) actor.Input {
	return cmdDismiss{All: true, Reply: reply}
}
