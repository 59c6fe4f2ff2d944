// Package actortest provides test doubles for actor-based packages.
package actortest

import (
	"context"
	"sync"

	"github.com/bhandras/usher/internal/actor"
)

// FakeRuntime records every effect it is handed instead of executing it.
//
// Tests inspect the recorded effects to assert on reducer output, and can
// install an EmitFn to script follow-up inputs.
type FakeRuntime struct {
	mu      sync.Mutex
	effects []actor.Effect
	stopped bool

	// EmitFn, when set, is invoked once per handled effect with the emit
	// callback so a test can feed scripted inputs back to the actor.
	EmitFn func(effect actor.Effect, emit func(actor.Input))
}

var _ actor.Runtime = (*FakeRuntime)(nil)

// HandleEffects records effects and runs EmitFn for each one when set.
func (f *FakeRuntime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	f.mu.Lock()
	f.effects = append(f.effects, effects...)
	fn := f.EmitFn
	f.mu.Unlock()

	if fn == nil {
		return
	}
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn(eff, emit)
	}
}

// Stop marks the runtime stopped.
func (f *FakeRuntime) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// Stopped reports whether Stop has been called.
func (f *FakeRuntime) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Effects returns a copy of every effect recorded so far.
func (f *FakeRuntime) Effects() []actor.Effect {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]actor.Effect, len(f.effects))
	copy(out, f.effects)
	return out
}

// Reset clears the recorded effects.
func (f *FakeRuntime) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.effects = nil
}

// EffectsOf filters the recorded effects of a FakeRuntime down to type T,
// preserving order.
func EffectsOf[T actor.Effect](f *FakeRuntime) []T {
	var out []T
	for _, eff := range f.Effects() {
		if t, ok := eff.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
