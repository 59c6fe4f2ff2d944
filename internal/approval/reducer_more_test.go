package approval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhandras/usher/internal/actor"
)

// TestSwitchCycle_PreservesBatchesAndFiresNothing drives the park-then-switch
// sequence between two sessions and checks that both unresolved batches
// survive any number of round trips with no continuation fired.
func TestSwitchCycle_PreservesBatchesAndFiresNothing(t *testing.T) {
	t.Parallel()

	var fired []effInvokeContinuation
	step := func(state State, in actor.Input) State {
		next, effects := Reduce(state, in)
		fired = append(fired, continuations(effects)...)
		return next
	}

	state := State{}
	state = step(state, cmdShowBatch{Batch: batch("batch-a", "A", "req1")})
	state = step(state, cmdShowBatch{Batch: batch("batch-b", "B", "req2")})
	require.Equal(t, "batch-a", state.Active.Batch.ID)
	require.Equal(t, []string{"batch-b"}, queueIDs(state))

	// Switch to B: park, then pull B's queued batch forward.
	state = step(state, cmdParkActive{})
	require.Nil(t, state.Active)
	require.Equal(t, []string{"batch-a", "batch-b"}, queueIDs(state))

	state = step(state, cmdProcessQueued{SessionID: "B"})
	require.Equal(t, "batch-b", state.Active.Batch.ID)
	require.Equal(t, []string{"batch-a"}, queueIDs(state))

	// Switch back to A: the parked batch has front priority.
	state = step(state, cmdParkActive{})
	require.Equal(t, []string{"batch-b", "batch-a"}, queueIDs(state))

	state = step(state, cmdProcessQueued{SessionID: "A"})
	require.Equal(t, "batch-a", state.Active.Batch.ID)
	require.Equal(t, []string{"batch-b"}, queueIDs(state))

	// Keep cycling; every round trip must land in the same shape.
	for i := 0; i < 50; i++ {
		state = step(state, cmdParkActive{})
		state = step(state, cmdProcessQueued{SessionID: "B"})
		require.Equal(t, "batch-b", state.Active.Batch.ID)

		state = step(state, cmdParkActive{})
		state = step(state, cmdProcessQueued{SessionID: "A"})
		require.Equal(t, "batch-a", state.Active.Batch.ID)
		require.Equal(t, []string{"batch-b"}, queueIDs(state))
	}

	require.Empty(t, fired, "navigation must never resolve a batch")
}

// TestProcessQueued_SlotOccupiedReinsertsUnstarted covers the branch where
// a session's batches are re-admitted while another batch still holds the
// slot: all of them move to the queue front without starting.
func TestProcessQueued_SlotOccupiedReinsertsUnstarted(t *testing.T) {
	t.Parallel()

	state := State{}
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("x", "C", "r0")})
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("p", "B", "r1")})
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("q", "A", "r2")})
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("r", "B", "r3")})
	require.Equal(t, []string{"p", "q", "r"}, queueIDs(state))

	state, effects := Reduce(state, cmdProcessQueued{SessionID: "B"})

	require.Equal(t, "x", state.Active.Batch.ID, "active batch must not be displaced")
	require.Equal(t, []string{"p", "r", "q"}, queueIDs(state))
	require.Empty(t, continuations(effects))
	require.Len(t, publishes(effects), 1)
}

// TestProcessQueued_NoMatchesIsNoOp checks that re-admitting a session with
// nothing queued changes nothing and publishes nothing.
func TestProcessQueued_NoMatchesIsNoOp(t *testing.T) {
	t.Parallel()

	state, _ := Reduce(State{}, cmdShowBatch{Batch: batch("a1", "A", "r1")})

	reply := make(chan error, 1)
	next, effects := Reduce(state, cmdProcessQueued{SessionID: "B", Reply: reply})
	require.NoError(t, <-reply)
	require.Empty(t, effects)
	require.Equal(t, state.Active.Batch.ID, next.Active.Batch.ID)
}

// TestAllowAllOnce_ApprovesPendingAndCompletes verifies the blanket approval
// path: every pending request is approved, the batch completes with the
// allow-all flag, and the queue front takes over.
func TestAllowAllOnce_ApprovesPendingAndCompletes(t *testing.T) {
	t.Parallel()

	state := State{}
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("b1", "A", "r1", "r2", "r3")})
	state, _ = Reduce(state, cmdShowBatch{Batch: batch("b2", "B", "r4")})

	// One request already denied by hand; allow-all keeps that verdict and
	// approves the rest.
	state, _ = Reduce(state, cmdDecide{RequestID: "r2", Allow: false, NowMs: 50})

	reply := make(chan error, 1)
	state, effects := Reduce(state, cmdAllowAllOnce{NowMs: 100, Reply: reply})
	require.NoError(t, <-reply)

	conts := continuations(effects)
	require.Len(t, conts, 1)
	require.Equal(t, "b1", conts[0].BatchID)
	require.Equal(t, CompletionResolved, conts[0].Reason)
	require.Equal(t, 3, conts[0].Outcome.DecisionCount)
	require.True(t, conts[0].Outcome.AllowAllOnce)

	require.Equal(t, "b2", state.Active.Batch.ID)
	require.Empty(t, state.Queue)
}

// TestAllowAllOnce_NoActiveBatch confirms the error reply when the slot is
// empty.
func TestAllowAllOnce_NoActiveBatch(t *testing.T) {
	t.Parallel()

	reply := make(chan error, 1)
	_, effects := Reduce(State{}, cmdAllowAllOnce{Reply: reply})
	require.ErrorIs(t, <-reply, ErrNoActiveBatch)
	require.Empty(t, effects)
}

// TestPublishDiscipline asserts the snapshot contract: state-changing inputs
// publish exactly once, no-ops publish nothing.
func TestPublishDiscipline(t *testing.T) {
	t.Parallel()

	state := State{}
	run := func(in actor.Input) int {
		var effects []actor.Effect
		state, effects = Reduce(state, in)
		return len(publishes(effects))
	}

	require.Equal(t, 1, run(cmdShowBatch{Batch: batch("a1", "A", "r1")}), "activation publishes")
	require.Equal(t, 1, run(cmdShowBatch{Batch: batch("b1", "B", "r2")}), "queueing publishes")
	require.Equal(t, 1, run(cmdParkActive{}), "parking publishes")
	require.Equal(t, 0, run(cmdParkActive{}), "repeat park is silent")
	require.Equal(t, 1, run(cmdProcessQueued{SessionID: "B"}), "re-admission publishes")
	require.Equal(t, 0, run(cmdProcessQueued{SessionID: "Z"}), "no-match re-admission is silent")
	require.Equal(t, 1, run(cmdDecide{RequestID: "r2", Allow: true, NowMs: 1}), "decision publishes")
	require.Equal(t, 0, run(cmdDecide{RequestID: "gone", Allow: true}), "failed decision is silent")
	require.Equal(t, 0, run(cmdDismiss{SessionID: "Z"}), "no-match dismissal is silent")
	require.Equal(t, 1, run(cmdDismiss{All: true}), "teardown publishes")
	require.Equal(t, 0, run(cmdDismiss{All: true}), "empty teardown is silent")
}

// TestContinuationExactlyOnce_FullLifecycle runs batches through admission,
// supersession, parking, resolution, and teardown, and checks every batch's
// continuation is emitted exactly once over its whole life.
func TestContinuationExactlyOnce_FullLifecycle(t *testing.T) {
	t.Parallel()

	firedBy := map[string]int{}
	reasons := map[string]CompletionReason{}
	state := State{}
	step := func(in actor.Input) {
		var effects []actor.Effect
		state, effects = Reduce(state, in)
		for _, c := range continuations(effects) {
			firedBy[c.BatchID]++
			reasons[c.BatchID] = c.Reason
		}
	}

	step(cmdShowBatch{Batch: batch("a1", "A", "r1")})
	step(cmdShowBatch{Batch: batch("b1", "B", "r2")})
	step(cmdShowBatch{Batch: batch("a2", "A", "r3")}) // supersedes a1
	step(cmdParkActive{})                             // parks a2
	step(cmdProcessQueued{SessionID: "B"})            // b1 active
	step(cmdShowBatch{Batch: batch("c1", "C", "r4")}) // queued
	step(cmdDecide{RequestID: "r2", Allow: true, NowMs: 1}) // resolves b1, starts a2
	step(cmdParkActive{})                             // parks a2 again
	step(cmdProcessQueued{SessionID: "C"})            // c1 active
	step(cmdDismiss{SessionID: "C"})                  // dismisses c1
	step(cmdDismiss{All: true})                       // tears down the rest (a2)

	require.Equal(t, map[string]int{"a1": 1, "b1": 1, "a2": 1, "c1": 1}, firedBy)
	require.Equal(t, CompletionSuperseded, reasons["a1"])
	require.Equal(t, CompletionResolved, reasons["b1"])
	require.Equal(t, CompletionTeardown, reasons["a2"])
	require.Equal(t, CompletionDismissed, reasons["c1"])
	require.Nil(t, state.Active)
	require.Empty(t, state.Queue)
}

// TestPendingAlwaysEqualsRequestsMinusDecisions walks a batch through mixed
// decisions and checks the bookkeeping identity after every step.
func TestPendingAlwaysEqualsRequestsMinusDecisions(t *testing.T) {
	t.Parallel()

	state, _ := Reduce(State{}, cmdShowBatch{Batch: batch("b1", "A", "r1", "r2", "r3", "r4")})

	checkIdentity := func() {
		t.Helper()
		if state.Active == nil {
			return
		}
		for _, req := range state.Active.Batch.Requests {
			_, decided := state.Active.Decisions[req.ID]
			_, pending := state.Active.Pending[req.ID]
			require.NotEqual(t, decided, pending,
				"request %s must be in exactly one of decided/pending", req.ID)
		}
		require.Equal(t, len(state.Active.Batch.Requests),
			len(state.Active.Decisions)+len(state.Active.Pending))
	}

	checkIdentity()
	for i, in := range []actor.Input{
		cmdDecide{RequestID: "r3", Allow: true, NowMs: 1},
		cmdDecide{RequestID: "r1", Allow: false, NowMs: 2},
		cmdDecide{RequestID: "r1", Allow: true, NowMs: 3}, // overwrite
		cmdDecide{RequestID: "r4", Allow: true, NowMs: 4},
	} {
		state, _ = Reduce(state, in)
		checkIdentity()
		require.NotNil(t, state.Active, "step %d should not complete the batch", i)
	}

	state, effects := Reduce(state, cmdDecide{RequestID: "r2", Allow: true, NowMs: 5})
	require.Nil(t, state.Active)
	conts := continuations(effects)
	require.Len(t, conts, 1)
	require.Equal(t, 4, conts[0].Outcome.DecisionCount)
}

// TestNewBatch_Validation covers the construction guards and the request
// slice copy.
func TestNewBatch_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewBatch("A", nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = NewBatch("A", reqs("r1", "r1"), nil)
	require.ErrorIs(t, err, ErrDuplicateRequest)

	input := reqs("r1", "r2")
	b, err := NewBatch("A", input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	require.Equal(t, "A", b.SessionID)
	require.Len(t, b.Requests, 2)

	// Mutating the caller's slice must not reach the batch.
	input[0].ID = "mutated"
	require.Equal(t, "r1", b.Requests[0].ID)

	b2, err := NewBatch("A", reqs("r1"), nil)
	require.NoError(t, err)
	require.NotEqual(t, b.ID, b2.ID)
}

// TestUISnapshot_DetachedFromState makes sure a published snapshot can be
// held and mutated freely without reaching back into router state.
func TestUISnapshot_DetachedFromState(t *testing.T) {
	t.Parallel()

	state, _ := Reduce(State{}, cmdShowBatch{Batch: batch("b1", "A", "r1", "r2")})
	state, _ = Reduce(state, cmdDecide{RequestID: "r1", Allow: true, NowMs: 9})

	snap := UISnapshot(state)
	require.Equal(t, []string{"r2"}, snap.PendingIDs)
	require.Len(t, snap.Decided, 1)

	snap.Requests[0].ID = "smashed"
	snap.Decided["r2"] = snap.Decided["r1"]
	snap.PendingIDs[0] = "smashed"

	require.Equal(t, "r1", state.Active.Batch.Requests[0].ID)
	require.Len(t, state.Active.Decisions, 1)
	_, stillPending := state.Active.Pending["r2"]
	require.True(t, stillPending)
}

// TestDecide_LeavesEarlierStatesUntouched holds on to pre-decision states
// while further verdicts land and checks their bookkeeping never moves: a
// decision swaps in fresh maps instead of writing the shared ones.
func TestDecide_LeavesEarlierStatesUntouched(t *testing.T) {
	t.Parallel()

	before, _ := Reduce(State{}, cmdShowBatch{Batch: batch("b1", "A", "r1", "r2", "r3")})

	after, _ := Reduce(before, cmdDecide{RequestID: "r1", Allow: true, NowMs: 7})
	require.Empty(t, before.Active.Decisions)
	require.Len(t, before.Active.Pending, 3)
	require.Len(t, after.Active.Decisions, 1)
	require.Len(t, after.Active.Pending, 2)

	final, effects := Reduce(after, cmdAllowAllOnce{NowMs: 8})
	require.Nil(t, final.Active)
	require.Len(t, continuations(effects), 1)

	// Both retained states keep the shape they had when returned.
	require.Empty(t, before.Active.Decisions)
	require.Len(t, before.Active.Pending, 3)
	require.Len(t, after.Active.Decisions, 1)
	require.Len(t, after.Active.Pending, 2)
}

// TestCommandAndEffectCoverage pins the marker interfaces so a new command
// or effect type cannot silently miss them.
func TestCommandAndEffectCoverage(t *testing.T) {
	t.Parallel()

	commands := []Command{
		cmdShowBatch{},
		cmdParkActive{},
		cmdProcessQueued{},
		cmdDecide{},
		cmdAllowAllOnce{},
		cmdDismiss{},
	}
	for _, c := range commands {
		var in actor.Input = c
		require.NotNil(t, in)
	}

	effects := []Effect{
		effInvokeContinuation{},
		effPublishUI{},
		effNotifyQueued{},
	}
	for _, e := range effects {
		var eff actor.Effect = e
		require.NotNil(t, eff)
	}
}
