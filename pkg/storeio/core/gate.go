package core

import "sync/atomic"

// RescheduleGate is the process-wide cap on how many peers may be
// mid-migration at once (spec.md §4.C). It is the only truly shared
// mutable datum in the router core; every other path is either
// single-writer per peer or a wait-free published snapshot.
type RescheduleGate struct {
	count atomic.Int64
	max   int64
}

// NewRescheduleGate creates a gate allowing up to max concurrent
// migrations. A max of 0 disables migration entirely; TryStart always
// fails.
func NewRescheduleGate(max int) *RescheduleGate {
	return &RescheduleGate{max: int64(max)}
}

// Max reports the configured concurrency cap.
func (g *RescheduleGate) Max() int {
	return int(g.max)
}

// TryStart attempts to reserve one migration slot. It succeeds only if
// the current count is strictly below the cap, in which case the count
// is incremented before returning true — the increment happens-before
// any buffering the caller does as a result, which is why this uses
// sequentially consistent ordering rather than a relaxed one.
func (g *RescheduleGate) TryStart() bool {
	for {
		current := g.count.Load()
		if current >= g.max {
			return false
		}
		if g.count.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// End releases a previously-reserved migration slot. Every TryStart that
// returns true must be matched by exactly one End.
func (g *RescheduleGate) End() {
	g.count.Add(-1)
}

// Count returns the current number of in-flight migrations, for tests
// and metrics.
func (g *RescheduleGate) Count() int {
	return int(g.count.Load())
}

// Set forcibly overwrites the count. Only used by tests that need to
// simulate gate saturation from other peers (spec.md §8 scenarios 6-7).
func (g *RescheduleGate) Set(n int) {
	g.count.Store(int64(n))
}
