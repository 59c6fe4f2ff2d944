// Package actor implements the event-loop scaffold the approval router is
// built on: pure state reducers plus declarative side-effects.
//
// The contract is:
//   - One goroutine (the actor loop) owns the state; nothing else writes it.
//   - A pure reducer maps (state, input) to (next state, effects).
//   - A runtime interprets effects outside the loop and feeds resulting
//     inputs back through the mailbox.
//
// Keeping mutation on a single goroutine makes multi-field invariants hold
// atomically across every operation, and keeping effects as data makes the
// reducer's behavior checkable in unit tests without running any I/O.
package actor

import (
	"context"
	"fmt"
	"sync"
)

// DefaultMailboxSize is the mailbox buffer used when no option overrides it.
const DefaultMailboxSize = 256

// Input is an item delivered to an actor mailbox.
//
// Inputs are either commands (requests from callers) or events (observations
// fed back by the runtime). The framework does not distinguish them; domain
// packages layer their own marker interfaces on top.
type Input interface {
	isActorInput()
}

// Effect is a declarative side-effect produced by a reducer.
//
// Effects are data, never execution. The Runtime interprets them after the
// state transition has been applied.
type Effect interface {
	isActorEffect()
}

// ReducerFunc is a pure state transition function.
//
// A reducer must not perform I/O, spawn goroutines, read clocks, or generate
// ids; anything nondeterministic is injected through the input. Given the
// same (state, input) a reducer returns the same (next, effects).
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime interprets effects and emits follow-up inputs back to the actor.
//
// Implementations must never mutate actor state directly; observations flow
// back through emit. HandleEffects runs on the actor loop goroutine and must
// return quickly, pushing blocking work onto other goroutines. Emission must
// cease once ctx is canceled.
type Runtime interface {
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop asks the runtime to wind down background work. Safe to call more
	// than once.
	Stop()
}

// Hooks provide optional observability into an actor's execution.
type Hooks[S any] struct {
	// OnInput fires after an input is dequeued, before reducing.
	OnInput func(input Input)
	// OnTransition fires after the reduced state has been applied.
	OnTransition func(prev S, next S, input Input)
	// OnEffects fires after reducing, before effects reach the Runtime.
	OnEffects func(effects []Effect)
	// OnDrop fires when a full mailbox forces Enqueue to discard an input.
	OnDrop func(input Input)
	// OnPanic fires when the loop panics. When nil the panic propagates.
	OnPanic func(recovered any)
}

// Actor runs a single-threaded event loop that owns state of type S.
type Actor[S any] struct {
	reduce  ReducerFunc[S]
	runtime Runtime
	hooks   Hooks[S]

	mu     sync.Mutex
	state  S
	inbox  chan Input
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Option configures an Actor.
type Option[S any] func(*Actor[S])

// WithHooks attaches hooks for observability.
func WithHooks[S any](hooks Hooks[S]) Option[S] {
	return func(a *Actor[S]) { a.hooks = hooks }
}

// WithMailboxSize sets the actor mailbox buffer size. Non-positive sizes are
// ignored.
func WithMailboxSize[S any](n int) Option[S] {
	return func(a *Actor[S]) {
		if n <= 0 {
			return
		}
		a.inbox = make(chan Input, n)
	}
}

// New creates an actor with initial state, reducer, and runtime. The loop is
// not running until Start is called.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime, opts ...Option[S]) *Actor[S] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		inbox:   make(chan Input, DefaultMailboxSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the actor loop in its own goroutine. Subsequent calls are
// no-ops.
func (a *Actor[S]) Start() {
	a.once.Do(func() { go a.loop() })
}

// Stop cancels the actor context and stops the runtime. Safe to call more
// than once.
func (a *Actor[S]) Stop() {
	a.cancel()
	if a.runtime != nil {
		a.runtime.Stop()
	}
}

// Done returns a channel that closes when the actor loop exits.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Stopping reports whether Stop has been called. The loop may still be
// draining when it returns true.
func (a *Actor[S]) Stopping() bool {
	select {
	case <-a.ctx.Done():
		return true
	default:
		return false
	}
}

// Enqueue delivers an input to the actor mailbox.
//
// Delivery is non-blocking: when the mailbox is full the input is dropped,
// the OnDrop hook fires, and Enqueue returns false. Enqueue also returns
// false once the actor has been stopped.
func (a *Actor[S]) Enqueue(input Input) bool {
	if input == nil {
		return false
	}
	select {
	case <-a.ctx.Done():
		return false
	default:
	}
	select {
	case a.inbox <- input:
		return true
	default:
		if a.hooks.OnDrop != nil {
			a.hooks.OnDrop(input)
		}
		return false
	}
}

// State returns a snapshot of the current actor state.
//
// Intended for observability and tests. Production code should derive
// behavior from reducer outputs instead of polling state concurrently.
func (a *Actor[S]) State() S {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor[S]) loop() {
	defer close(a.done)
	defer func() {
		if r := recover(); r != nil {
			if a.hooks.OnPanic != nil {
				a.hooks.OnPanic(r)
				return
			}
			panic(r)
		}
	}()

	emit := func(in Input) {
		_ = a.Enqueue(in)
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case in := <-a.inbox:
			if in == nil {
				continue
			}
			a.step(in, emit)
		}
	}
}

// step reduces one input and hands the resulting effects to the runtime.
func (a *Actor[S]) step(in Input, emit func(Input)) {
	if a.hooks.OnInput != nil {
		a.hooks.OnInput(in)
	}

	a.mu.Lock()
	prev := a.state
	a.mu.Unlock()

	next, effects := a.reduce(prev, in)

	a.mu.Lock()
	a.state = next
	a.mu.Unlock()

	if a.hooks.OnTransition != nil {
		a.hooks.OnTransition(prev, next, in)
	}
	if len(effects) == 0 {
		return
	}
	if a.hooks.OnEffects != nil {
		a.hooks.OnEffects(effects)
	}
	if a.runtime != nil {
		a.runtime.HandleEffects(a.ctx, effects, emit)
	}
}

// ErrStopped is returned by callers that find the actor no longer accepting
// inputs.
var ErrStopped = fmt.Errorf("actor stopped")

// ErrMailboxFull is returned by callers whose input was dropped because the
// mailbox is full while the actor keeps running. Unlike ErrStopped it is
// transient; the same input can be retried.
var ErrMailboxFull = fmt.Errorf("actor mailbox full")
