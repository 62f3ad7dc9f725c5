package core

import "github.com/stevepentland/tikv-writerouter/pkg/storeio"

// RouterContext is the view a WriteRouter needs at each operation
// (spec.md §6): a SenderView, a Config snapshot, and a metrics handle.
// Implementations are expected to be owned by exactly one goroutine and
// refreshed at a well-defined safepoint before any router operation runs.
type RouterContext interface {
	WriteSenders() *SenderView
	Config() storeio.Config
	RaftMetrics() *storeio.Metrics
}

// Context is the default RouterContext: one goroutine's cached view of the
// shared sender pool and config, plus the shared metrics handle. One
// Context is created per raftstore-polling goroutine, mirroring the
// one-SenderView-per-consumer-thread lifecycle spec.md §3 describes.
type Context struct {
	senders *SenderView
	config  *storeio.ConfigView
	metrics *storeio.Metrics
}

// NewContext builds a Context from a pool controller and config tracker,
// taking fresh per-consumer views from each.
func NewContext(pool *PoolController, cfg *storeio.ConfigTracker, metrics *storeio.Metrics) *Context {
	return &Context{
		senders: pool.NewView(),
		config:  cfg.NewView(),
		metrics: metrics,
	}
}

// Refresh adopts the latest published pool and config. Call this once at
// the start of each batch of router operations — never mid-operation —
// so worker ids stay valid for the duration of one router call.
func (c *Context) Refresh() {
	c.senders.Refresh()
	c.config.Refresh()
}

// WriteSenders implements RouterContext.
func (c *Context) WriteSenders() *SenderView {
	return c.senders
}

// Config implements RouterContext.
func (c *Context) Config() storeio.Config {
	return c.config.Get()
}

// RaftMetrics implements RouterContext.
func (c *Context) RaftMetrics() *storeio.Metrics {
	return c.metrics
}
