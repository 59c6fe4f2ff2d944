// Package sdk exposes the coordinator: one object that embeds the approval
// router, the generation and draft trackers, and the generation pipeline
// behind a synchronous API for a host application.
//
// All router and tracker state is owned by the coordinator's internals;
// callers interact through methods and through the published approval UI
// snapshots.
package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bhandras/usher/internal/actor"
	"github.com/bhandras/usher/internal/approval"
	"github.com/bhandras/usher/internal/config"
	"github.com/bhandras/usher/internal/draft"
	"github.com/bhandras/usher/internal/generation"
	"github.com/bhandras/usher/internal/metrics"
	"github.com/bhandras/usher/internal/notify"
	"github.com/bhandras/usher/internal/pipeline"
	"github.com/bhandras/usher/pkg/logger"
)

// closeTimeout bounds how long Close waits for running generations.
const closeTimeout = 5 * time.Second

// Coordinator is the single owner of approval, generation, and draft state.
// Safe for concurrent use.
type Coordinator struct {
	cfg      config.Config
	clock    actor.Clock
	engine   Engine
	metrics  *metrics.Metrics
	notifier approval.Notifier

	router  *actor.Actor[approval.State]
	runtime *approval.Runtime
	gens    *generation.Registry
	drafts  *draft.Tracker
	runner  *pipeline.Runner

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEngine installs the generation engine invoked by StartGeneration.
func WithEngine(engine Engine) Option {
	return func(c *Coordinator) { c.engine = engine }
}

// WithPrometheus registers the coordinator's collectors with reg and
// enables metrics reporting.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *Coordinator) { c.metrics = metrics.New(reg) }
}

// WithNotifier overrides the attention notifier built from configuration.
func WithNotifier(notifier approval.Notifier) Option {
	return func(c *Coordinator) { c.notifier = notifier }
}

// WithClock overrides the clock used for decision timestamps.
func WithClock(clock actor.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// New builds and starts a coordinator from cfg.
func New(cfg config.Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	c := &Coordinator{
		cfg:   cfg,
		clock: actor.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.notifier == nil && cfg.PushoverEnabled() {
		c.notifier = notify.NewNotifier(notify.Config{
			Token:    cfg.PushoverToken,
			UserKey:  cfg.PushoverUserKey,
			Priority: cfg.PushoverPriority,
			Cooldown: cfg.NotifyCooldown,
		})
	}

	c.gens = generation.NewRegistry(cfg.MaxConcurrentGenerations)
	if c.metrics != nil {
		m := c.metrics
		c.gens.SetObserver(func(count int) {
			m.GenerationsActive.Set(float64(count))
		})
	}
	c.drafts = draft.NewTracker()
	c.runner = pipeline.NewRunner(c.gens)

	c.runtime = approval.NewRuntime(c.notifier, c.metrics)
	c.router = actor.New(approval.State{}, approval.Reduce, c.runtime,
		actor.WithMailboxSize[approval.State](cfg.ActorMailboxSize),
		actor.WithHooks(approval.RouterHooks(c.metrics)))
	c.router.Start()

	logger.Infof("coordinator started: maxConcurrentGenerations=%d notifier=%t",
		cfg.MaxConcurrentGenerations, c.notifier != nil)
	return c, nil
}

// submit enqueues one router command. A refused enqueue maps to ErrStopped
// when the router is stopping and to ErrMailboxFull when the mailbox simply
// has no room; only the former is terminal.
func (c *Coordinator) submit(in actor.Input) error {
	if c.router.Enqueue(in) {
		return nil
	}
	if c.router.Stopping() {
		return actor.ErrStopped
	}
	return actor.ErrMailboxFull
}

// do enqueues a command built around a fresh reply channel and waits for
// the router's answer.
func (c *Coordinator) do(build func(reply chan error) actor.Input) error {
	reply := make(chan error, 1)
	if err := c.submit(build(reply)); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.router.Done():
		return actor.ErrStopped
	}
}

// Close tears down every outstanding approval batch, stops running
// generations, and halts the router. Idempotent.
//
// Teardown fires each unresolved batch's continuation with nothing
// approved, so generations blocked in AwaitApprovals resume before the
// pipeline shutdown waits on them.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		teardownErr := c.do(approval.DismissAll)

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		shutdownErr := c.runner.Shutdown(ctx)

		c.router.Stop()

		if teardownErr != nil {
			c.closeErr = teardownErr
		} else {
			c.closeErr = shutdownErr
		}
		logger.Infof("coordinator closed")
	})
	return c.closeErr
}
