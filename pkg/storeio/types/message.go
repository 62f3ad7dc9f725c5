// Package types holds the small data vocabulary shared between the router
// core and the worker slots it sends to: the opaque write message, the
// sequence numbers that drive migration, and the priority tokens exchanged
// with a worker on send.
package types

// WriteMsg is an opaque write batch produced by a peer: a log append, a
// snapshot, or a state transition. The router never inspects or
// constructs one, only forwards it to a WorkerSlot.
type WriteMsg interface {
	// Peer identifies which peer produced this message, for logging and
	// metrics labeling only.
	Peer() string
}

// ResourceCoster is an optional capability a WriteMsg may implement so a
// WorkerSlot can account for its resource cost on arrival. Messages that
// don't implement it are treated as zero-cost.
type ResourceCoster interface {
	ResourceCost() int64
}

// SeqNo is a peer-local write sequence number. The zero value has no
// special meaning on its own; absence is modeled with a pointer or a
// boolean flag at the call site, matching spec.md's `Option<u64>`.
type SeqNo = uint64

// Priority is the server-assigned priority token a WorkerSlot hands back
// on a successful send. It is only ever used as a lower bound for the
// same peer's next send, which after a migration goes to a different slot
// — callers must not interpret it as an absolute index into anything.
type Priority = uint64
