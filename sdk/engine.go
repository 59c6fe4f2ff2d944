package sdk

import (
	"context"
	"fmt"

	"github.com/bhandras/usher/pkg/types"
)

// ErrNoEngine is returned by StartGeneration when no engine is configured.
var ErrNoEngine = fmt.Errorf("no generation engine configured")

// Approver lets an engine suspend a turn until its tool calls are decided.
type Approver interface {
	// AwaitApprovals routes the turn's tool requests through the approval
	// UI and blocks until the batch resolves or ctx ends. When ctx ends
	// first the batch stays behind in the router; the next same-session
	// batch or an explicit dismissal cleans it up.
	AwaitApprovals(ctx context.Context, sessionID string, requests []types.ApprovalRequest) (types.ApprovalOutcome, error)
}

// Engine produces assistant turns. Implementations live outside this
// module; the coordinator only drives them.
type Engine interface {
	// GenerateTurn runs one response turn for a session. The engine calls
	// approvals.AwaitApprovals whenever the turn proposes tool calls, and
	// returns promptly once ctx is canceled.
	GenerateTurn(ctx context.Context, sessionID string, prompt string, approvals Approver) error
}
