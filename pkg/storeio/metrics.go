package storeio

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the raft_metrics() capability from spec.md §6: the two named
// gauges and the block-wait histogram a WriteRouter emits, backed by real
// prometheus collectors rather than ad-hoc counters so the embedding
// process can scrape them the same way it scrapes everything else.
type Metrics struct {
	PendingTasks   prometheus.Gauge
	MigratingPeers prometheus.Gauge
	WriteBlockWait prometheus.Histogram
}

// NewMetrics constructs and registers the router's metrics against reg.
// Passing a fresh prometheus.NewRegistry() in tests keeps collector
// registration isolated between test cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_io_reschedule_pending_tasks_total",
			Help: "Number of write messages currently buffered awaiting an io reschedule to finish.",
		}),
		MigratingPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "store_io_reschedule_peer_total",
			Help: "Number of peers currently migrating to a new io worker.",
		}),
		WriteBlockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "raftstore_io_write_block_wait_seconds",
			Help:    "Seconds a peer blocked in a fallback send after its io worker channel was full.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	reg.MustRegister(m.PendingTasks, m.MigratingPeers, m.WriteBlockWait)
	return m
}

// IncPendingTasks records one message appended to a router's pending buffer.
func (m *Metrics) IncPendingTasks() {
	m.PendingTasks.Inc()
}

// SubPendingTasks records n messages drained from a router's pending
// buffer in one migration completion.
func (m *Metrics) SubPendingTasks(n int) {
	m.PendingTasks.Sub(float64(n))
}

// IncMigratingPeers records one peer entering the Migrating state.
func (m *Metrics) IncMigratingPeers() {
	m.MigratingPeers.Inc()
}

// DecMigratingPeers records one peer leaving the Migrating state.
func (m *Metrics) DecMigratingPeers() {
	m.MigratingPeers.Dec()
}

// ObserveBlockWait records one blocking fallback send's duration in
// seconds.
func (m *Metrics) ObserveBlockWait(seconds float64) {
	m.WriteBlockWait.Observe(seconds)
}
