// Package generation tracks which sessions currently have an assistant
// response in flight.
//
// The registry answers "is this session busy" and caps how many sessions may
// generate at once. It deliberately has no influence over navigation: a user
// can always switch to or create another session while generations run
// elsewhere, so the capacity check happens only when a new generation is
// about to start.
package generation

import "sync"

// DefaultMaxConcurrent is the generation cap applied when no explicit limit
// is configured.
const DefaultMaxConcurrent = 3

// Registry is a bounded set of session ids with in-flight generations.
// Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	limit    int
	active   map[string]struct{}
	observer func(count int)
}

// NewRegistry returns a registry bounded to limit concurrent generations.
// Non-positive limits fall back to DefaultMaxConcurrent.
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return &Registry{
		limit:  limit,
		active: make(map[string]struct{}),
	}
}

// SetObserver installs a callback invoked with the active count after every
// membership change. The callback runs outside the registry lock.
func (r *Registry) SetObserver(fn func(count int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Register marks sessionID as generating.
//
// Registering an already-active session succeeds without consuming another
// slot. When the registry is full the call returns false and membership is
// unchanged. The empty id is never a session and is rejected.
func (r *Registry) Register(sessionID string) bool {
	if sessionID == "" {
		return false
	}

	r.mu.Lock()
	if _, ok := r.active[sessionID]; ok {
		r.mu.Unlock()
		return true
	}
	if len(r.active) >= r.limit {
		r.mu.Unlock()
		return false
	}
	r.active[sessionID] = struct{}{}
	count := len(r.active)
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(count)
	}
	return true
}

// Unregister removes sessionID from the active set. Unknown ids are a no-op.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	if _, ok := r.active[sessionID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.active, sessionID)
	count := len(r.active)
	observer := r.observer
	r.mu.Unlock()

	if observer != nil {
		observer(count)
	}
}

// IsGenerating reports whether sessionID has a generation in flight.
func (r *Registry) IsGenerating(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sessionID]
	return ok
}

// AnyGenerating reports whether any session has a generation in flight.
func (r *Registry) AnyGenerating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active) > 0
}

// Count returns the number of sessions currently generating.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Limit returns the configured concurrency cap.
func (r *Registry) Limit() int {
	return r.limit
}

// CanStart reports whether another generation may begin right now.
func (r *Registry) CanStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active) < r.limit
}

// CanSwitchSession reports whether the user may navigate to another session.
// Generation activity never blocks navigation, so this is always true.
func (r *Registry) CanSwitchSession() bool { return true }

// CanStartNewSession reports whether the user may create a new session.
// Generation activity never blocks creation, so this is always true.
func (r *Registry) CanStartNewSession() bool { return true }

// ActiveSessions returns the ids currently generating, in no particular
// order.
func (r *Registry) ActiveSessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}
