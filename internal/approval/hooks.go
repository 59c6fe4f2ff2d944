package approval

import (
	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/internal/metrics"
	"github.com/bhandras/usher/pkg/logger"
)

// RouterHooks builds the hooks installed on the router actor: trace logging
// plus, when m is non-nil, gauge and counter updates. Hook bodies run on the
// router goroutine and stay cheap.
func RouterHooks(m *metrics.Metrics) actor.Hooks[State] {
	return actor.Hooks[State]{
		OnInput: func(in actor.Input) {
			logger.Tracef("approval: input %T", in)
			if m != nil {
				m.ActorInputsTotal.Inc()
			}
		},
		OnTransition: func(prev, next State, in actor.Input) {
			if m != nil {
				if next.Active != nil {
					m.ApprovalActive.Set(1)
				} else {
					m.ApprovalActive.Set(0)
				}
				m.ApprovalQueueDepth.Set(float64(len(next.Queue)))
				if disposition := batchDisposition(prev, next, in); disposition != "" {
					m.BatchesTotal.WithLabelValues(disposition).Inc()
				}
			}
		},
		OnEffects: func(effects []actor.Effect) {
			logger.Tracef("approval: %d effect(s)", len(effects))
		},
		OnDrop: func(in actor.Input) {
			logger.Warnf("approval: mailbox full, dropping %T", in)
			if m != nil {
				m.ActorDropsTotal.Inc()
			}
		},
		OnPanic: func(recovered any) {
			logger.Errorf("approval: router loop panicked: %v", recovered)
		},
	}
}

// batchDisposition classifies what one input did to a batch, for the
// usher_batches_total counter.
func batchDisposition(prev, next State, in actor.Input) string {
	switch cmd := in.(type) {
	case cmdShowBatch:
		if next.Active != nil && next.Active.Batch.ID == cmd.Batch.ID {
			return "shown"
		}
		for _, queued := range next.Queue {
			if queued.ID == cmd.Batch.ID {
				return "queued"
			}
		}
	case cmdParkActive:
		if prev.Active != nil && next.Active == nil {
			return "parked"
		}
	case cmdProcessQueued:
		if prev.Active == nil && next.Active != nil {
			return "requeued"
		}
	}
	return ""
}
