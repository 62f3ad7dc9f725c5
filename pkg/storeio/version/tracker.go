// Package version provides a small wait-free publish/subscribe snapshot
// primitive: a single writer wholesale-replaces a value, and any number of
// readers hold a cheap cursor they can poll to discover whether a newer
// value has been published, without ever observing a torn mix of old and
// new state.
package version

import "sync/atomic"

// Tracker holds the current value of T, published atomically. It is safe
// for concurrent use by one writer and many readers.
type Tracker[T any] struct {
	current atomic.Pointer[T]
	version atomic.Uint64
}

// NewTracker creates a Tracker already published with the given value.
func NewTracker[T any](initial T) *Tracker[T] {
	t := &Tracker[T]{}
	t.current.Store(&initial)
	t.version.Add(1)
	return t
}

// Publish wholesale-replaces the tracked value. Readers that already hold a
// View will not see it until they call Refresh.
func (t *Tracker[T]) Publish(value T) {
	t.current.Store(&value)
	t.version.Add(1)
}

// Value returns the most recently published value directly, bypassing any
// cursor. Used by one-shot readers that don't need a cached View.
func (t *Tracker[T]) Value() T {
	return *t.current.Load()
}

// NewView creates a consumer-owned cursor already synced to the tracker's
// current value. Each consuming goroutine should create exactly one View
// and refresh it at a well-defined safepoint, never mid-operation.
func (t *Tracker[T]) NewView() *View[T] {
	v := &View[T]{tracker: t}
	v.Refresh()
	return v
}

// View is a per-consumer cached snapshot of a Tracker. It is not safe for
// concurrent use by multiple goroutines — one View per consumer.
type View[T any] struct {
	tracker *Tracker[T]
	cursor  uint64
	cached  T
}

// Refresh adopts the tracker's latest published value if this view's
// cursor is stale, and reports whether it did so. Call this at the start
// of a batch of operations, not in the middle of one, so the cached value
// stays stable for the duration of that batch.
func (v *View[T]) Refresh() bool {
	latest := v.tracker.version.Load()
	if latest == v.cursor {
		return false
	}
	v.cached = *v.tracker.current.Load()
	v.cursor = latest
	return true
}

// Get returns the cached value as of the last Refresh.
func (v *View[T]) Get() T {
	return v.cached
}
