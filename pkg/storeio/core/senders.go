package core

import (
	"errors"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio/version"
)

// ErrEmptyPool is returned by Resize when asked to publish a pool with no
// workers at all; a router has nowhere to pick from.
var ErrEmptyPool = errors.New("storeio: pool must have at least one worker")

// SharedSenderPool is the ordered sequence of WorkerSlots published by a
// PoolController. It is replaced wholesale on resize, never mutated in
// place, so any reader that has grabbed a slice value observes either the
// pool as it was or the pool as it is now, never a torn mix (spec.md §3).
type SharedSenderPool []WorkerSlot

// PoolController is the controller-side handle on a SharedSenderPool: the
// single writer that may resize the pool, publishing each new pool through
// a version.Tracker so readers get wait-free, acquire/release-ordered
// snapshots. It also owns the RescheduleGate, since the gate is shared by
// every router that consults this pool.
type PoolController struct {
	tracker *version.Tracker[SharedSenderPool]
	gate    *RescheduleGate
}

// NewPoolController creates a controller already publishing the given
// pool, with a RescheduleGate capped at rescheduleMax concurrent
// migrations.
func NewPoolController(initial SharedSenderPool, rescheduleMax int) *PoolController {
	return &PoolController{
		tracker: version.NewTracker(initial),
		gate:    NewRescheduleGate(rescheduleMax),
	}
}

// Gate returns the shared RescheduleGate.
func (c *PoolController) Gate() *RescheduleGate {
	return c.gate
}

// NewView creates a new per-consumer SenderView, already synced to the
// current pool. Create exactly one per consumer thread/goroutine and
// refresh it at a well-defined safepoint.
func (c *PoolController) NewView() *SenderView {
	return &SenderView{view: c.tracker.NewView(), gate: c.gate}
}

// Resize wholesale-replaces the published pool with one of size n. Slot
// ids retained across the resize keep their existing WorkerSlot instance
// so in-flight sends on an untouched worker are undisturbed; only the
// delta when growing is built fresh via newSlot. Shrinking simply drops
// the trailing slots from the published pool — it is the embedding
// process's job to decide whether and when to drain and close those
// slots, since a reader may still be mid-send to one when the resize is
// accepted.
func (c *PoolController) Resize(n int, newSlot func(id int) WorkerSlot) error {
	if n <= 0 {
		return ErrEmptyPool
	}
	current := c.tracker.Value()
	next := make(SharedSenderPool, n)
	copy(next, current)
	for i := len(current); i < n; i++ {
		next[i] = newSlot(i)
	}
	c.tracker.Publish(next)
	return nil
}

// SenderView is a thread-local cached snapshot of a SharedSenderPool,
// refreshed at well-defined points and indexable by worker id (spec.md
// §4.B). It also carries the handle to the shared RescheduleGate, mirroring
// the original Rust `WriteSenders` bundling both concerns behind one
// router-facing type.
type SenderView struct {
	view *version.View[SharedSenderPool]
	gate *RescheduleGate
}

// Refresh adopts the latest published pool if this view's cursor is
// stale. Call once at the start of a batch of router operations.
func (v *SenderView) Refresh() bool {
	return v.view.Refresh()
}

// Size returns the cached pool size as of the last Refresh.
func (v *SenderView) Size() int {
	return len(v.view.Get())
}

// IsEmpty reports whether the cached pool has no workers.
func (v *SenderView) IsEmpty() bool {
	return v.Size() == 0
}

// Index returns the WorkerSlot at id in the cached pool. Callers must
// clamp id against an effective size computed from both this view and the
// current Config before indexing (spec.md §4.B) — Index itself trusts its
// caller and will panic on an out-of-range id, like a plain slice index.
func (v *SenderView) Index(id int) WorkerSlot {
	return v.view.Get()[id]
}

// Gate returns the RescheduleGate shared by every SenderView over this
// pool.
func (v *SenderView) Gate() *RescheduleGate {
	return v.gate
}
