package storeio

import (
	"time"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio/version"
)

// Config is the subset of the enclosing store's configuration the router
// and pool controller consult (spec.md §6). It is produced and hot-reloaded
// by the embedding process's configuration layer; this package only
// consumes it through the same versioned-snapshot mechanism used for the
// sender pool, so a config reload and a pool resize are observed by a
// router at the same refresh safepoint.
type Config struct {
	// StoreIOPoolSize is the advisory worker pool size. The router's
	// effective size is min(senderView.Size(), StoreIOPoolSize),
	// computed fresh before every selection so a reload that hasn't
	// been matched yet by a pool resize (or vice versa) never produces
	// an out-of-range worker id.
	StoreIOPoolSize int

	// StoreIONotifyCapacity bounds the channel workers create to
	// receive messages. The router never uses this directly; it's
	// surfaced here because it travels with the same config snapshot
	// workers are built from.
	StoreIONotifyCapacity int

	// IORescheduleConcurrentMaxCount caps the number of peers allowed
	// to be mid-migration at once. Zero disables migration entirely.
	IORescheduleConcurrentMaxCount int

	// IORescheduleHotpotDuration is the minimum cool-down between two
	// migration attempts on the same peer.
	IORescheduleHotpotDuration time.Duration
}

// DefaultConfig returns a Config with the hotpot duration and pool size the
// teacher's own test suite exercises as a sane baseline; callers should
// always override IORescheduleConcurrentMaxCount and StoreIOPoolSize to
// match their deployment.
func DefaultConfig() Config {
	return Config{
		StoreIOPoolSize:                4,
		StoreIONotifyCapacity:          128,
		IORescheduleConcurrentMaxCount: 4,
		IORescheduleHotpotDuration:     500 * time.Millisecond,
	}
}

// ConfigTracker publishes Config snapshots the same way a PoolController
// publishes sender pools: one writer, many per-consumer ConfigViews.
type ConfigTracker struct {
	tracker *version.Tracker[Config]
}

// NewConfigTracker creates a tracker already publishing the given config.
func NewConfigTracker(initial Config) *ConfigTracker {
	return &ConfigTracker{tracker: version.NewTracker(initial)}
}

// Reload wholesale-replaces the published config.
func (t *ConfigTracker) Reload(next Config) {
	t.tracker.Publish(next)
}

// NewView creates a new per-consumer ConfigView, already synced.
func (t *ConfigTracker) NewView() *ConfigView {
	return &ConfigView{view: t.tracker.NewView()}
}

// ConfigView is a per-consumer cached Config snapshot.
type ConfigView struct {
	view *version.View[Config]
}

// Refresh adopts the latest published config if stale. Call at the same
// safepoint as the paired SenderView's Refresh.
func (v *ConfigView) Refresh() bool {
	return v.view.Refresh()
}

// Get returns the cached config as of the last Refresh.
func (v *ConfigView) Get() Config {
	return v.view.Get()
}
