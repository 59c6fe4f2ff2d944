package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/internal/metrics"
	"github.com/bhandras/usher/internal/notify"
	"github.com/bhandras/usher/pkg/logger"
	"github.com/bhandras/usher/pkg/types"
)

// notifyTimeout bounds one attention-notification delivery.
const notifyTimeout = 5 * time.Second

// Notifier delivers attention notifications for queued batches.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Runtime interprets router effects: it fires continuations, pushes UI
// snapshots to the listener, and requests attention notifications.
//
// IMPORTANT: the runtime never touches router state. Everything it does is
// driven by the effect values alone, which is what keeps the exactly-once
// continuation guarantee checkable in the reducer.
type Runtime struct {
	mu       sync.Mutex
	listener func(types.ApprovalUIState)
	notifier Notifier
	metrics  *metrics.Metrics
}

var _ actor.Runtime = (*Runtime)(nil)

// NewRuntime returns a runtime. Both notifier and m may be nil.
func NewRuntime(notifier Notifier, m *metrics.Metrics) *Runtime {
	return &Runtime{notifier: notifier, metrics: m}
}

// SetUIListener installs the snapshot consumer. The listener runs on the
// router goroutine and must not block; replacing it affects only later
// publishes.
func (r *Runtime) SetUIListener(fn func(types.ApprovalUIState)) {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
}

// HandleEffects interprets one reducer output.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, _ func(actor.Input)) {
	for _, effect := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch eff := effect.(type) {
		case effInvokeContinuation:
			r.invokeContinuation(eff)
		case effPublishUI:
			r.publishUI(eff.State)
		case effNotifyQueued:
			r.notifyQueued(ctx, eff)
		}
	}
}

// Stop implements actor.Runtime. Notification goroutines stop on their own
// when the actor context is canceled.
func (r *Runtime) Stop() {}

func (r *Runtime) invokeContinuation(eff effInvokeContinuation) {
	logger.Debugf("approval: batch %s (%s) completed: reason=%s decisions=%d allowAll=%t",
		eff.BatchID, sessionLabel(eff.SessionID), eff.Reason,
		eff.Outcome.DecisionCount, eff.Outcome.AllowAllOnce)

	if r.metrics != nil {
		r.metrics.ContinuationsTotal.WithLabelValues(string(eff.Reason)).Inc()
	}
	if eff.Continue == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("approval: continuation for batch %s panicked: %v", eff.BatchID, rec)
		}
	}()
	eff.Continue(eff.Outcome.DecisionCount, eff.Outcome.AllowAllOnce)
}

func (r *Runtime) publishUI(snap types.ApprovalUIState) {
	r.mu.Lock()
	listener := r.listener
	r.mu.Unlock()
	if listener == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("approval: UI listener panicked: %v", rec)
		}
	}()
	listener(snap)
}

func (r *Runtime) notifyQueued(ctx context.Context, eff effNotifyQueued) {
	if r.notifier == nil {
		return
	}

	noun := "tool call"
	if eff.RequestCount != 1 {
		noun = "tool calls"
	}
	msg := notify.Message{
		Title:    "Approval needed",
		Body:     fmt.Sprintf("%d %s waiting in %s", eff.RequestCount, noun, sessionLabel(eff.SessionID)),
		AlertKey: "attention:" + eff.SessionID,
	}

	go func() {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := r.notifier.Notify(nctx, msg); err != nil {
			logger.Warnf("approval: attention notification failed: %v", err)
		}
	}()
}

func sessionLabel(sessionID string) string {
	if sessionID == types.NoSession {
		return "untagged session"
	}
	return "session " + sessionID
}
