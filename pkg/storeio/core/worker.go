package core

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio/types"
)

// ErrFull is returned by TrySend when the worker's inbound channel has no
// room. It is expected under backpressure; callers fall back to a
// blocking Send.
var ErrFull = errors.New("storeio: worker channel full")

// ErrDisconnected is returned once a WorkerSlot has been closed. Workers
// outlive peers during normal operation, so observing this mid-steady-state
// is a fatal invariant violation for the caller, not something this package
// decides how to handle.
var ErrDisconnected = errors.New("storeio: worker channel disconnected")

// WorkerSlot is the bounded channel endpoint a WriteRouter forwards
// messages through. Implementations live on the I/O worker side of the
// process; this package only depends on the interface.
type WorkerSlot interface {
	// ConsumeMsgResource accounts msg's cost against the slot's quota.
	// Side-effect only; must never fail observably.
	ConsumeMsgResource(msg types.WriteMsg)

	// TrySend attempts a non-blocking enqueue. lowerBound, when non-nil,
	// is a lower bound the returned priority token must meet or exceed,
	// so that one peer's messages are processed monotonically by a
	// worker that multiplexes many peers by priority.
	TrySend(msg types.WriteMsg, lowerBound *types.Priority) (types.Priority, error)

	// Send blocks until msg is enqueued or the slot is permanently
	// closed.
	Send(msg types.WriteMsg, lowerBound *types.Priority) error
}

// ChannelWorkerSlot is a reference WorkerSlot backed by a buffered Go
// channel. It is the concrete stand-in for the external I/O worker
// collaborator spec.md declares out of scope, sized so the scenarios in
// spec.md §8 and this package's own tests can exercise a real send path.
type ChannelWorkerSlot struct {
	id     int
	ch     chan types.WriteMsg
	closed atomic.Bool
	done   chan struct{}
	once   sync.Once

	mu          sync.Mutex
	lastGranted types.Priority

	consumed atomic.Int64
}

// NewChannelWorkerSlot creates a slot with the given inbound buffer
// capacity (spec.md's store_io_notify_capacity).
func NewChannelWorkerSlot(id int, capacity int) *ChannelWorkerSlot {
	return &ChannelWorkerSlot{
		id:   id,
		ch:   make(chan types.WriteMsg, capacity),
		done: make(chan struct{}),
	}
}

// ID returns the slot's worker identifier within its pool.
func (s *ChannelWorkerSlot) ID() int {
	return s.id
}

// ConsumeMsgResource implements WorkerSlot.
func (s *ChannelWorkerSlot) ConsumeMsgResource(msg types.WriteMsg) {
	if coster, ok := msg.(types.ResourceCoster); ok {
		s.consumed.Add(coster.ResourceCost())
	}
}

// ConsumedResource reports the running total accounted by
// ConsumeMsgResource, for tests and diagnostics.
func (s *ChannelWorkerSlot) ConsumedResource() int64 {
	return s.consumed.Load()
}

// nextPriority computes a token that is monotonic for this slot and meets
// the caller's lower bound, then remembers it as the new floor.
func (s *ChannelWorkerSlot) nextPriority(lowerBound *types.Priority) types.Priority {
	s.mu.Lock()
	defer s.mu.Unlock()

	floor := s.lastGranted
	if lowerBound != nil && *lowerBound > floor {
		floor = *lowerBound
	}
	granted := floor + 1
	s.lastGranted = granted
	return granted
}

// TrySend implements WorkerSlot.
func (s *ChannelWorkerSlot) TrySend(msg types.WriteMsg, lowerBound *types.Priority) (types.Priority, error) {
	if s.closed.Load() {
		return 0, ErrDisconnected
	}
	priority := s.nextPriority(lowerBound)
	select {
	case s.ch <- msg:
		return priority, nil
	default:
		if s.closed.Load() {
			return 0, ErrDisconnected
		}
		return 0, ErrFull
	}
}

// Send implements WorkerSlot.
func (s *ChannelWorkerSlot) Send(msg types.WriteMsg, lowerBound *types.Priority) error {
	if s.closed.Load() {
		return ErrDisconnected
	}
	s.nextPriority(lowerBound)
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return ErrDisconnected
	}
}

// Close permanently disconnects the slot. Further TrySend/Send calls
// return ErrDisconnected.
func (s *ChannelWorkerSlot) Close() {
	s.closed.Store(true)
	s.once.Do(func() { close(s.done) })
}

// Inbox exposes the receive side for test harnesses that want to drain
// and assert on delivered messages.
func (s *ChannelWorkerSlot) Inbox() <-chan types.WriteMsg {
	return s.ch
}
