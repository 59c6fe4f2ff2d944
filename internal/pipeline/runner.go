// Package pipeline runs generation tasks: one cancellable goroutine per
// session, admitted through the generation registry.
//
// Cancellation is cooperative. A cancelled task's context closes, but the
// task decides when to return, and nothing here reaches into router state;
// batches a dead generation left behind are the router's problem to detect.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bhandras/usher/internal/generation"
	"github.com/bhandras/usher/pkg/logger"
)

// ErrTooManyGenerations is returned when the registry is at capacity.
var ErrTooManyGenerations = fmt.Errorf("too many concurrent generations")

// ErrNoSession is returned when a task is started without a session id.
var ErrNoSession = fmt.Errorf("session id required")

// ErrShutdown is returned when the runner no longer accepts tasks.
var ErrShutdown = fmt.Errorf("pipeline shut down")

// TaskFunc is the body of one generation turn. It must return promptly once
// ctx is canceled.
type TaskFunc func(ctx context.Context)

type task struct {
	id     string
	gen    int64
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner owns the generation tasks. Safe for concurrent use.
type Runner struct {
	registry *generation.Registry

	mu         sync.Mutex
	tasks      map[string]*task
	gen        int64
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewRunner returns a runner admitting tasks through registry.
func NewRunner(registry *generation.Registry) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		registry:   registry,
		tasks:      make(map[string]*task),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Run starts fn as the generation task for sessionID.
//
// A session runs at most one task: starting a new one cancels and replaces
// the previous task while the session stays registered throughout. A session
// with no running task must win a registry slot or Run fails with
// ErrTooManyGenerations.
func (r *Runner) Run(sessionID string, fn TaskFunc) error {
	if sessionID == "" {
		return ErrNoSession
	}

	r.mu.Lock()
	if r.baseCtx.Err() != nil {
		r.mu.Unlock()
		return ErrShutdown
	}
	prev := r.tasks[sessionID]
	if !r.registry.Register(sessionID) {
		r.mu.Unlock()
		return ErrTooManyGenerations
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.gen++
	t := &task{id: uuid.NewString(), gen: r.gen, cancel: cancel, done: make(chan struct{})}
	r.tasks[sessionID] = t
	r.mu.Unlock()

	if prev != nil {
		logger.Debugf("pipeline: replacing task %s for session %s", prev.id, sessionID)
		prev.cancel()
	}
	logger.Debugf("pipeline: session %s task %s started", sessionID, t.id)

	go func() {
		defer close(t.done)
		defer r.finish(sessionID, t.gen)
		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorf("pipeline: task for session %s panicked: %v", sessionID, rec)
			}
		}()
		fn(ctx)
	}()
	return nil
}

// finish releases the session when its current task exits. A replaced
// task's generation no longer matches and releases nothing.
func (r *Runner) finish(sessionID string, gen int64) {
	r.mu.Lock()
	t := r.tasks[sessionID]
	if t == nil || t.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.tasks, sessionID)
	r.mu.Unlock()
	r.registry.Unregister(sessionID)
	logger.Debugf("pipeline: session %s task %s finished", sessionID, t.id)
}

// Cancel asks sessionID's task to stop. It reports whether a task was
// running; the session stays registered until the task actually exits.
func (r *Runner) Cancel(sessionID string) bool {
	r.mu.Lock()
	t := r.tasks[sessionID]
	r.mu.Unlock()
	if t == nil {
		return false
	}
	t.cancel()
	return true
}

// IsRunning reports whether sessionID has a task that has not exited.
func (r *Runner) IsRunning(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[sessionID]
	return ok
}

// Shutdown cancels every task and waits for them to exit, or for ctx. After
// Shutdown the runner accepts no new tasks.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.baseCancel()
	waiting := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		waiting = append(waiting, t)
	}
	r.mu.Unlock()

	for _, t := range waiting {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
