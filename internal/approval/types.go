// Package approval implements the tool-approval batch router.
//
// Concurrent generation turns produce batches of tool-approval requests, but
// only one batch may occupy the approval UI at a time. The router admits
// batches into the single active slot, queues the rest, parks and re-admits
// batches as the user moves between sessions, detects batches orphaned by a
// cancelled generation, and guarantees each batch's continuation fires at
// most once.
//
// The router runs as an actor: commands go in, a pure reducer moves the
// state, and effects carry continuation invocations, UI snapshots, and
// notification requests out to the runtime.
package approval

import (
	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/pkg/types"
)

// Continuation resumes the generation turn that produced a batch. It
// receives how many requests were individually decided and whether the user
// granted a blanket "allow all" for the turn.
//
// A force-completed batch reports (0, false): nothing was approved.
type Continuation func(decisionCount int, allowAllOnce bool)

// Batch is the unit of approval: every tool request from one generation
// turn, resolved together.
type Batch struct {
	// ID identifies the batch itself, distinct from any request id.
	ID string

	// SessionID tags the owning session. Empty means the batch is untagged;
	// untagged batches route as belonging to one shared "no session"
	// identity.
	SessionID string

	// Requests are the tool calls awaiting a verdict.
	Requests []types.ApprovalRequest

	// Continue resumes the producing generation exactly once, or never if
	// the batch is abandoned while parked.
	Continue Continuation
}

// ActiveBatch is the batch occupying the UI slot plus its decision
// bookkeeping.
type ActiveBatch struct {
	Batch Batch

	// Decisions accumulates per-request verdicts, keyed by request id.
	Decisions map[string]types.ApprovalDecision

	// Pending holds the request ids still awaiting a verdict. Always equal
	// to the batch's request ids minus the decided ones.
	Pending map[string]struct{}
}

// clone copies the batch bookkeeping into fresh maps. Reducers that record
// decisions mutate the clone only, so a State returned earlier is never
// written again.
func (a *ActiveBatch) clone() *ActiveBatch {
	decisions := make(map[string]types.ApprovalDecision, len(a.Decisions))
	for id, decision := range a.Decisions {
		decisions[id] = decision
	}
	pending := make(map[string]struct{}, len(a.Pending))
	for id := range a.Pending {
		pending[id] = struct{}{}
	}
	return &ActiveBatch{Batch: a.Batch, Decisions: decisions, Pending: pending}
}

// State is the complete router state: one optional active batch and a FIFO
// queue behind it.
type State struct {
	Active *ActiveBatch
	Queue  []Batch
}

// CompletionReason classifies why a batch's continuation fired.
type CompletionReason string

const (
	// CompletionResolved means the user decided every request (or granted
	// allow-all).
	CompletionResolved CompletionReason = "resolved"
	// CompletionSuperseded means a newer batch from the same session proved
	// this one stale.
	CompletionSuperseded CompletionReason = "superseded"
	// CompletionDismissed means a session-scoped dismissal dropped the
	// batch.
	CompletionDismissed CompletionReason = "dismissed"
	// CompletionTeardown means a global teardown dropped the batch.
	CompletionTeardown CompletionReason = "torn_down"
)

// Command is a router input.
type Command interface {
	actor.Input
	isApprovalCommand()
}

// cmdShowBatch admits a batch produced by a generation turn.
type cmdShowBatch struct {
	actor.InputBase
	Batch Batch
}

// cmdParkActive suspends the active batch to the queue front.
type cmdParkActive struct {
	actor.InputBase
	Reply chan error
}

// cmdProcessQueued re-admits queued batches for one session.
type cmdProcessQueued struct {
	actor.InputBase
	SessionID string
	Reply     chan error
}

// cmdDecide records one request's verdict.
type cmdDecide struct {
	actor.InputBase
	RequestID string
	Allow     bool
	Message   string
	NowMs     int64
	Reply     chan error
}

// cmdAllowAllOnce approves every pending request in the active batch.
type cmdAllowAllOnce struct {
	actor.InputBase
	NowMs int64
	Reply chan error
}

// cmdDismiss force-completes batches. All selects the global teardown;
// otherwise only batches routing to SessionID are dropped.
type cmdDismiss struct {
	actor.InputBase
	SessionID string
	All       bool
	Reply     chan error
}

func (cmdShowBatch) isApprovalCommand()     {}
func (cmdParkActive) isApprovalCommand()    {}
func (cmdProcessQueued) isApprovalCommand() {}
func (cmdDecide) isApprovalCommand()        {}
func (cmdAllowAllOnce) isApprovalCommand()  {}
func (cmdDismiss) isApprovalCommand()       {}

// Effect is a router output.
type Effect interface {
	actor.Effect
	isApprovalEffect()
}

// effInvokeContinuation fires a batch's continuation. Emitted at most once
// per batch id.
type effInvokeContinuation struct {
	actor.EffectBase
	BatchID   string
	SessionID string
	Continue  Continuation
	Outcome   types.ApprovalOutcome
	Reason    CompletionReason
}

// effPublishUI carries the UI snapshot after a state-changing input.
type effPublishUI struct {
	actor.EffectBase
	State types.ApprovalUIState
}

// effNotifyQueued asks for an attention notification: a batch is waiting
// behind another session's active batch.
type effNotifyQueued struct {
	actor.EffectBase
	SessionID    string
	BatchID      string
	RequestCount int
}

func (effInvokeContinuation) isApprovalEffect() {}
func (effPublishUI) isApprovalEffect()          {}
func (effNotifyQueued) isApprovalEffect()       {}
