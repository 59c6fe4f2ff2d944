package approval

import "github.com/bhandras/usher/pkg/types"

// UISnapshot derives the published UI view from router state. Slices and
// maps are copied so consumers can hold the snapshot without racing the
// router.
func UISnapshot(state State) types.ApprovalUIState {
	snap := types.ApprovalUIState{QueueDepth: len(state.Queue)}
	if state.Active == nil {
		return snap
	}

	active := state.Active
	snap.Visible = true
	snap.SessionID = active.Batch.SessionID
	snap.BatchID = active.Batch.ID

	snap.Requests = make([]types.ApprovalRequest, len(active.Batch.Requests))
	copy(snap.Requests, active.Batch.Requests)

	snap.Decided = make(map[string]types.ApprovalDecision, len(active.Decisions))
	for id, decision := range active.Decisions {
		snap.Decided[id] = decision
	}

	// Pending ids keep the batch's request order.
	snap.PendingIDs = make([]string, 0, len(active.Pending))
	for _, req := range active.Batch.Requests {
		if _, ok := active.Pending[req.ID]; ok {
			snap.PendingIDs = append(snap.PendingIDs, req.ID)
		}
	}
	return snap
}
