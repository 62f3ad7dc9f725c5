package core

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio/definition"
	"github.com/stevepentland/tikv-writerouter/pkg/storeio/types"
)

// retrySchedule is how long a peer waits before retrying a migration
// attempt that failed because the RescheduleGate was already saturated
// (spec.md §4.D).
const retrySchedule = 10 * time.Millisecond

// WriteRouter is a per-peer state machine that decides which I/O worker
// receives each outgoing write batch of that peer, buffering messages
// during a worker migration and draining them in order once the migration
// is safe to complete (spec.md §4.D). A WriteRouter is owned by exactly
// one goroutine — the peer's owning raftstore thread — and must never be
// accessed concurrently.
type WriteRouter struct {
	tag string

	writerID         int
	nextRetryTime    time.Time
	nextWriterID     *int
	lastUnpersisted  *uint64
	pendingWriteMsgs []types.WriteMsg
	lastMsgPriority  *types.Priority

	log definition.Logger
	rng *rand.Rand
}

// NewWriteRouter creates a router for the given peer tag. The first real
// worker selection happens on the first send with no outstanding
// unpersisted write. Each router gets its own random source, seeded from
// both wall time and the tag, so concurrently-created peers don't draw
// synchronized migration candidates. A nil log falls back to
// definition.NewDefaultLogger().
func NewWriteRouter(tag string, log definition.Logger) *WriteRouter {
	if log == nil {
		log = definition.NewDefaultLogger()
	}
	seed := time.Now().UnixNano()
	for _, r := range tag {
		seed = seed*31 + int64(r)
	}
	return &WriteRouter{
		tag:           tag,
		writerID:      0,
		nextRetryTime: time.Now(),
		log:           log,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Tag returns the peer identifier this router was created for.
func (r *WriteRouter) Tag() string {
	return r.tag
}

// WriterID returns the worker id this router currently targets.
func (r *WriteRouter) WriterID() int {
	return r.writerID
}

// Snapshot is a point-in-time view of a router's state, for tests that
// want to assert spec.md §8's invariants without reaching into unexported
// fields from another package. It carries no behavior of its own.
type Snapshot struct {
	Tag             string
	WriterID        int
	Migrating       bool
	PendingBufLen   int
	NextWriterID    *int
	LastUnpersisted *uint64
}

// Snapshot returns the router's current state.
func (r *WriteRouter) Snapshot() Snapshot {
	return Snapshot{
		Tag:             r.tag,
		WriterID:        r.writerID,
		Migrating:       r.lastUnpersisted != nil,
		PendingBufLen:   len(r.pendingWriteMsgs),
		NextWriterID:    r.nextWriterID,
		LastUnpersisted: r.lastUnpersisted,
	}
}

// SendWriteMsg sends msg to this peer's write worker, or parks it in the
// pending buffer if the peer is mid-migration. lastUnpersisted is the
// peer's current last-unpersisted sequence number, nil if the peer has no
// outstanding writes. ctx must reflect a freshly-refreshed view.
func (r *WriteRouter) SendWriteMsg(ctx RouterContext, lastUnpersisted *uint64, msg types.WriteMsg) {
	if lastUnpersisted == nil {
		// New causal chain: no monotonic priority bound needed.
		r.lastMsgPriority = nil
	}
	if r.shouldSend(ctx, lastUnpersisted) {
		r.send(ctx, msg)
	} else {
		ctx.RaftMetrics().IncPendingTasks()
		r.pendingWriteMsgs = append(r.pendingWriteMsgs, msg)
	}
}

// CheckNewPersisted observes the peer's latest durably-persisted sequence
// number. If a migration is in flight and persistedNumber proves every
// message sent to the old worker is now durable, the migration completes:
// the gate slot is released and the pending buffer drains, in order, to
// the new worker.
func (r *WriteRouter) CheckNewPersisted(ctx RouterContext, persistedNumber uint64) {
	if r.lastUnpersisted == nil || *r.lastUnpersisted > persistedNumber {
		return
	}

	// The peer must be destroyed only after all its writes are durable,
	// so a destroyed peer is never counted against the gate.
	ctx.WriteSenders().Gate().End()
	ctx.RaftMetrics().DecMigratingPeers()

	preWriterID := r.writerID
	r.writerID = *r.nextWriterID
	r.nextWriterID = nil
	r.nextRetryTime = time.Now().Add(ctx.Config().IORescheduleHotpotDuration)
	r.lastUnpersisted = nil

	msgs := r.pendingWriteMsgs
	r.pendingWriteMsgs = nil

	r.log.Infof("finishs io reschedule tag=%s pre_writer_id=%d writer_id=%d msg_len=%d",
		r.tag, preWriterID, r.writerID, len(msgs))
	ctx.RaftMetrics().SubPendingTasks(len(msgs))

	// last_msg_priority carries over so the new worker sees a
	// non-decreasing priority sequence and processes this drained burst
	// before any newer message.
	for _, m := range msgs {
		r.send(ctx, m)
	}
}

// shouldSend decides whether msg can go straight to a worker now, or must
// be buffered pending migration drain. See spec.md §4.D's should_send
// table — every branch below corresponds to one row of it, in order.
func (r *WriteRouter) shouldSend(ctx RouterContext, lastUnpersisted *uint64) bool {
	if r.lastUnpersisted != nil {
		// Migration in flight: everything queues to keep peer order.
		return false
	}

	senders := ctx.WriteSenders()
	cfg := ctx.Config()
	// Local views may lag a just-accepted config reload; keep to the
	// smaller of the two until both catch up.
	effectiveSize := senders.Size()
	if cfg.StoreIOPoolSize < effectiveSize {
		effectiveSize = cfg.StoreIOPoolSize
	}

	if lastUnpersisted == nil {
		// No outstanding write: causally independent, free choice.
		r.writerID = r.rng.Intn(effectiveSize)
		r.nextRetryTime = time.Now().Add(cfg.IORescheduleHotpotDuration)
		r.nextWriterID = nil
		return true
	}

	if cfg.IORescheduleConcurrentMaxCount == 0 {
		return true
	}

	now := time.Now()
	if !now.After(r.nextRetryTime) {
		return true
	}

	if r.nextWriterID == nil {
		// Hot write peers should not be entirely rescheduled away: a
		// self-selected candidate means "no migration preferred now".
		newID := r.rng.Intn(effectiveSize)
		if newID == r.writerID {
			r.nextRetryTime = now.Add(cfg.IORescheduleHotpotDuration)
			return true
		}
		candidate := newID
		r.nextWriterID = &candidate
	}

	if senders.Gate().TryStart() {
		ctx.RaftMetrics().IncMigratingPeers()
		lu := *lastUnpersisted
		r.lastUnpersisted = &lu
		r.log.Infof("starts io reschedule tag=%s", r.tag)
		return false
	}

	// Gate saturated: retry shortly. next_writer_id is retained across
	// the retry so the candidate destination is stable.
	r.nextRetryTime = now.Add(retrySchedule)
	return true
}

// send accounts msg's cost on the currently selected worker, then
// attempts a non-blocking enqueue. A full channel falls back to a
// blocking send with the stall recorded as a metric sample. A
// disconnected worker is a fatal invariant violation — workers outlive
// peers during normal operation — so the process is safely aborted.
func (r *WriteRouter) send(ctx RouterContext, msg types.WriteMsg) {
	slot := ctx.WriteSenders().Index(r.writerID)
	slot.ConsumeMsgResource(msg)

	priority, err := slot.TrySend(msg, r.lastMsgPriority)
	switch {
	case err == nil:
		r.lastMsgPriority = &priority
	case errors.Is(err, ErrFull):
		start := time.Now()
		// Blocking send doesn't hand back a priority token here; that
		// mirrors the upstream behavior of leaving last_msg_priority
		// untouched on this path.
		if sendErr := slot.Send(msg, r.lastMsgPriority); sendErr != nil {
			r.safePanic("failed to send write msg, err: disconnected")
			return
		}
		ctx.RaftMetrics().ObserveBlockWait(time.Since(start).Seconds())
	case errors.Is(err, ErrDisconnected):
		r.safePanic("failed to send write msg, err: disconnected")
	}
}

func (r *WriteRouter) safePanic(reason string) {
	msg := fmt.Sprintf("%s: %s", r.tag, reason)
	r.log.Error(msg)
	panic(msg)
}
