// Package metrics exposes Prometheus instrumentation for the coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the module reports.
type Metrics struct {
	// ApprovalActive is 1 while a batch occupies the approval UI, else 0.
	ApprovalActive prometheus.Gauge

	// ApprovalQueueDepth is the number of batches waiting behind the active
	// one.
	ApprovalQueueDepth prometheus.Gauge

	// GenerationsActive is the number of sessions currently generating.
	GenerationsActive prometheus.Gauge

	// ContinuationsTotal counts fired batch continuations by outcome:
	// resolved, superseded, dismissed, torn_down.
	ContinuationsTotal *prometheus.CounterVec

	// BatchesTotal counts batch dispositions as they move through the
	// router: shown, queued, parked, requeued.
	BatchesTotal *prometheus.CounterVec

	// ActorInputsTotal counts inputs processed by the router actor.
	ActorInputsTotal prometheus.Counter

	// ActorDropsTotal counts inputs discarded because the mailbox was full.
	ActorDropsTotal prometheus.Counter
}

// New registers the module's collectors with reg and returns them. A nil
// registerer falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ApprovalActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usher_approval_active",
			Help: "Whether a tool approval batch currently occupies the UI (0 or 1).",
		}),
		ApprovalQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usher_approval_queue_depth",
			Help: "Number of approval batches queued behind the active one.",
		}),
		GenerationsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "usher_generations_active",
			Help: "Number of sessions with an assistant generation in flight.",
		}),
		ContinuationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usher_continuations_total",
			Help: "Batch continuations fired, labeled by completion outcome.",
		}, []string{"outcome"}),
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usher_batches_total",
			Help: "Approval batch dispositions observed by the router.",
		}, []string{"disposition"}),
		ActorInputsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "usher_actor_inputs_total",
			Help: "Inputs processed by the approval router actor.",
		}),
		ActorDropsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "usher_actor_drops_total",
			Help: "Inputs dropped because the router mailbox was full.",
		}),
	}
}
