// Package types defines the data vocabulary shared between the approval
// router, the trackers, and embedding applications.
package types

// NoSession tags a batch or operation that arrived without an owning session
// identifier. Two untagged batches count as the same session for routing.
const NoSession = ""

// SameRoutingSession reports whether two session tags identify the same
// session for approval routing purposes.
//
// Absence is compared explicitly: an untagged value only ever matches another
// untagged value. Callers should tag batches with real session ids; untagged
// batches from different origins merge into one routing bucket.
func SameRoutingSession(a, b string) bool {
	if a == NoSession || b == NoSession {
		return a == NoSession && b == NoSession
	}
	return a == b
}

// ApprovalRequest describes a single tool call awaiting a user decision.
// Requests are immutable once constructed.
type ApprovalRequest struct {
	// ID uniquely identifies the request within its batch.
	ID string `json:"id"`
	// ToolName is the tool the generation wants to execute.
	ToolName string `json:"toolName"`
	// ConnectorID identifies the connector providing the tool, if any.
	ConnectorID string `json:"connectorId,omitempty"`
}

// ApprovalDecision records the user's decision for a single request.
type ApprovalDecision struct {
	// Allow reports whether the request was approved.
	Allow bool `json:"allow"`
	// Message is an optional user-supplied note, typically a deny reason.
	Message string `json:"message,omitempty"`
	// ResolvedAt is the wall-clock timestamp (ms since epoch) when the
	// decision was recorded.
	ResolvedAt int64 `json:"resolvedAt"`
}

// ApprovalOutcome summarizes how a batch resolved. It is delivered to the
// producer through the batch's completion continuation.
//
// A force-completed batch (stale supersession, dismissal, teardown) carries a
// zero DecisionCount; producers must treat that as "nothing approved".
type ApprovalOutcome struct {
	// DecisionCount is the number of per-request decisions accumulated when
	// the batch resolved.
	DecisionCount int `json:"decisionCount"`
	// AllowAllOnce reports whether the user granted a one-time allow-all.
	AllowAllOnce bool `json:"allowAllOnce"`
}

// ApprovalUIState is the snapshot published to the UI layer whenever router
// state changes. Snapshots are immutable; a new one is published per change.
type ApprovalUIState struct {
	// Visible reports whether the approval UI should be shown.
	Visible bool `json:"visible"`
	// SessionID is the session owning the visible batch.
	SessionID string `json:"sessionId,omitempty"`
	// BatchID identifies the visible batch.
	BatchID string `json:"batchId,omitempty"`
	// Requests is the visible batch's ordered request list.
	Requests []ApprovalRequest `json:"requests,omitempty"`
	// Decided holds per-request decisions recorded so far, keyed by request id.
	Decided map[string]ApprovalDecision `json:"decided,omitempty"`
	// PendingIDs lists request ids still awaiting a decision, in request order.
	PendingIDs []string `json:"pendingIds,omitempty"`
	// QueueDepth is the number of batches waiting behind the visible one.
	QueueDepth int `json:"queueDepth"`
}
