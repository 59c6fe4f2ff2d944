package approval

import (
	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/pkg/types"
)

// Reduce is the router's state transition function. It is pure: time stamps
// and identifiers arrive inside the inputs, and everything observable leaves
// as effects. A returned State is never mutated afterwards; recording a
// decision swaps in a cloned ActiveBatch rather than writing the shared maps
// in place, so snapshots derived from older states stay readable while the
// router moves on.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch cmd := input.(type) {
	case cmdShowBatch:
		return reduceShowBatch(state, cmd)
	case cmdParkActive:
		return reduceParkActive(state, cmd)
	case cmdProcessQueued:
		return reduceProcessQueued(state, cmd)
	case cmdDecide:
		return reduceDecide(state, cmd)
	case cmdAllowAllOnce:
		return reduceAllowAllOnce(state, cmd)
	case cmdDismiss:
		return reduceDismiss(state, cmd)
	}
	return state, nil
}

func reduceShowBatch(state State, cmd cmdShowBatch) (State, []actor.Effect) {
	b := cmd.Batch
	var effects []actor.Effect

	if state.Active != nil {
		if types.SameRoutingSession(state.Active.Batch.SessionID, b.SessionID) {
			// A same-session batch arriving while one is still active means
			// the active one is stale: its generation was superseded or
			// cancelled without clearing it. The new batch wins; the old
			// one and every queued batch of the session resolve with
			// nothing approved.
			effects = append(effects, forceCompletion(state.Active.Batch, CompletionSuperseded))
			state.Active = nil

			kept := make([]Batch, 0, len(state.Queue))
			for _, queued := range state.Queue {
				if types.SameRoutingSession(queued.SessionID, b.SessionID) {
					effects = append(effects, forceCompletion(queued, CompletionSuperseded))
					continue
				}
				kept = append(kept, queued)
			}
			state.Queue = kept
		} else {
			// Another session holds the UI; wait in line.
			state.Queue = append(state.Queue, b)
			effects = append(effects,
				effNotifyQueued{SessionID: b.SessionID, BatchID: b.ID, RequestCount: len(b.Requests)},
				publish(state))
			return state, effects
		}
	}

	state, started := startBatch(state, b)
	effects = append(effects, started...)
	effects = append(effects, publish(state))
	return state, effects
}

func reduceParkActive(state State, cmd cmdParkActive) (State, []actor.Effect) {
	if state.Active == nil {
		sendReply(cmd.Reply, nil)
		return state, nil
	}

	// Parking suspends without resolving: the batch keeps its continuation
	// and goes to the queue front so it is next-shown for its session.
	// Partial decisions do not survive the trip.
	state.Queue = append([]Batch{state.Active.Batch}, state.Queue...)
	state.Active = nil
	sendReply(cmd.Reply, nil)
	return state, []actor.Effect{publish(state)}
}

func reduceProcessQueued(state State, cmd cmdProcessQueued) (State, []actor.Effect) {
	extracted := make([]Batch, 0, len(state.Queue))
	remaining := make([]Batch, 0, len(state.Queue))
	for _, queued := range state.Queue {
		if types.SameRoutingSession(queued.SessionID, cmd.SessionID) {
			extracted = append(extracted, queued)
		} else {
			remaining = append(remaining, queued)
		}
	}
	if len(extracted) == 0 {
		sendReply(cmd.Reply, nil)
		return state, nil
	}

	if state.Active != nil {
		// Should not happen in the park-then-switch sequence, but if a
		// batch holds the slot the session's batches move to the front
		// unstarted rather than displacing it.
		state.Queue = append(extracted, remaining...)
		sendReply(cmd.Reply, nil)
		return state, []actor.Effect{publish(state)}
	}

	first := extracted[0]
	rest := extracted[1:]
	queue := make([]Batch, 0, len(rest)+len(remaining))
	queue = append(queue, rest...)
	queue = append(queue, remaining...)
	state.Queue = queue

	state, effects := startBatch(state, first)
	sendReply(cmd.Reply, nil)
	effects = append(effects, publish(state))
	return state, effects
}

func reduceDecide(state State, cmd cmdDecide) (State, []actor.Effect) {
	if state.Active == nil {
		sendReply(cmd.Reply, ErrNoActiveBatch)
		return state, nil
	}
	if !batchHasRequest(state.Active.Batch, cmd.RequestID) {
		sendReply(cmd.Reply, ErrUnknownRequest)
		return state, nil
	}

	active := state.Active.clone()
	active.Decisions[cmd.RequestID] = types.ApprovalDecision{
		Allow:      cmd.Allow,
		Message:    cmd.Message,
		ResolvedAt: cmd.NowMs,
	}
	delete(active.Pending, cmd.RequestID)
	state.Active = active
	sendReply(cmd.Reply, nil)

	if len(active.Pending) > 0 {
		return state, []actor.Effect{publish(state)}
	}
	return completeActive(state, false)
}

func reduceAllowAllOnce(state State, cmd cmdAllowAllOnce) (State, []actor.Effect) {
	if state.Active == nil {
		sendReply(cmd.Reply, ErrNoActiveBatch)
		return state, nil
	}

	active := state.Active.clone()
	for _, req := range active.Batch.Requests {
		if _, decided := active.Decisions[req.ID]; decided {
			continue
		}
		active.Decisions[req.ID] = types.ApprovalDecision{
			Allow:      true,
			ResolvedAt: cmd.NowMs,
		}
		delete(active.Pending, req.ID)
	}
	state.Active = active
	sendReply(cmd.Reply, nil)
	return completeActive(state, true)
}

func reduceDismiss(state State, cmd cmdDismiss) (State, []actor.Effect) {
	if cmd.All {
		return reduceTeardown(state, cmd)
	}

	var effects []actor.Effect
	if state.Active != nil && types.SameRoutingSession(state.Active.Batch.SessionID, cmd.SessionID) {
		effects = append(effects, forceCompletion(state.Active.Batch, CompletionDismissed))
		state.Active = nil
	}
	kept := make([]Batch, 0, len(state.Queue))
	for _, queued := range state.Queue {
		if types.SameRoutingSession(queued.SessionID, cmd.SessionID) {
			effects = append(effects, forceCompletion(queued, CompletionDismissed))
			continue
		}
		kept = append(kept, queued)
	}
	state.Queue = kept
	sendReply(cmd.Reply, nil)

	if len(effects) == 0 {
		return state, nil
	}
	effects = append(effects, publish(state))
	return state, effects
}

func reduceTeardown(state State, cmd cmdDismiss) (State, []actor.Effect) {
	if state.Active == nil && len(state.Queue) == 0 {
		sendReply(cmd.Reply, nil)
		return state, nil
	}

	var effects []actor.Effect
	if state.Active != nil {
		effects = append(effects, forceCompletion(state.Active.Batch, CompletionTeardown))
		state.Active = nil
	}
	for _, queued := range state.Queue {
		effects = append(effects, forceCompletion(queued, CompletionTeardown))
	}
	state.Queue = nil
	sendReply(cmd.Reply, nil)
	effects = append(effects, publish(state))
	return state, effects
}

// startBatch makes b the active batch with fresh decision bookkeeping.
//
// A batch without requests has nothing to decide; it resolves immediately
// and the queue front takes its place. The loop consumes at most the whole
// queue.
func startBatch(state State, b Batch) (State, []actor.Effect) {
	var effects []actor.Effect
	for len(b.Requests) == 0 {
		effects = append(effects, effInvokeContinuation{
			BatchID:   b.ID,
			SessionID: b.SessionID,
			Continue:  b.Continue,
			Outcome:   types.ApprovalOutcome{DecisionCount: 0, AllowAllOnce: false},
			Reason:    CompletionResolved,
		})
		if len(state.Queue) == 0 {
			state.Active = nil
			return state, effects
		}
		b = state.Queue[0]
		state.Queue = state.Queue[1:]
	}

	pending := make(map[string]struct{}, len(b.Requests))
	for _, req := range b.Requests {
		pending[req.ID] = struct{}{}
	}
	state.Active = &ActiveBatch{
		Batch:     b,
		Decisions: make(map[string]types.ApprovalDecision, len(b.Requests)),
		Pending:   pending,
	}
	return state, effects
}

// completeActive fires the active batch's continuation with its accumulated
// decisions, then promotes the queue front regardless of session.
func completeActive(state State, allowAll bool) (State, []actor.Effect) {
	active := state.Active
	effects := []actor.Effect{effInvokeContinuation{
		BatchID:   active.Batch.ID,
		SessionID: active.Batch.SessionID,
		Continue:  active.Batch.Continue,
		Outcome: types.ApprovalOutcome{
			DecisionCount: len(active.Decisions),
			AllowAllOnce:  allowAll,
		},
		Reason: CompletionResolved,
	}}
	state.Active = nil

	if len(state.Queue) > 0 {
		next := state.Queue[0]
		state.Queue = state.Queue[1:]
		var started []actor.Effect
		state, started = startBatch(state, next)
		effects = append(effects, started...)
	}

	effects = append(effects, publish(state))
	return state, effects
}

// forceCompletion resolves a batch with nothing approved.
func forceCompletion(b Batch, reason CompletionReason) actor.Effect {
	return effInvokeContinuation{
		BatchID:   b.ID,
		SessionID: b.SessionID,
		Continue:  b.Continue,
		Outcome:   types.ApprovalOutcome{DecisionCount: 0, AllowAllOnce: false},
		Reason:    reason,
	}
}

func publish(state State) actor.Effect {
	return effPublishUI{State: UISnapshot(state)}
}

func batchHasRequest(b Batch, requestID string) bool {
	for _, req := range b.Requests {
		if req.ID == requestID {
			return true
		}
	}
	return false
}

// sendReply completes a command reply without ever blocking the router
// loop. A caller that stopped listening forfeits the result.
func sendReply(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}
