package core

import (
	"testing"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio/types"
)

type costedMsg struct {
	peer string
	cost int64
}

func (m costedMsg) Peer() string        { return m.peer }
func (m costedMsg) ResourceCost() int64 { return m.cost }

func TestChannelWorkerSlot_TrySendReturnsMonotonicPriority(t *testing.T) {
	s := NewChannelWorkerSlot(0, 4)

	p1, err := s.TrySend(costedMsg{"a", 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bound := p1
	p2, err := s.TrySend(costedMsg{"a", 1}, &bound)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2 <= p1 {
		t.Fatalf("expected strictly increasing priority, got %d then %d", p1, p2)
	}
	if p2 < bound {
		t.Fatalf("priority %d should be >= lower bound %d", p2, bound)
	}
}

func TestChannelWorkerSlot_FullThenDisconnected(t *testing.T) {
	s := NewChannelWorkerSlot(0, 1)

	if _, err := s.TrySend(costedMsg{"a", 1}, nil); err != nil {
		t.Fatalf("first send should succeed: %v", err)
	}
	if _, err := s.TrySend(costedMsg{"a", 1}, nil); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}

	s.Close()
	if _, err := s.TrySend(costedMsg{"a", 1}, nil); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected after close, got %v", err)
	}
	if err := s.Send(costedMsg{"a", 1}, nil); err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected from blocking send, got %v", err)
	}
}

func TestChannelWorkerSlot_ConsumeMsgResourceTracksCost(t *testing.T) {
	s := NewChannelWorkerSlot(0, 4)
	s.ConsumeMsgResource(costedMsg{"a", 7})
	s.ConsumeMsgResource(costedMsg{"a", 3})
	if got := s.ConsumedResource(); got != 10 {
		t.Fatalf("expected consumed resource 10, got %d", got)
	}
}

func TestChannelWorkerSlot_BlockingSendUnblocksOnClose(t *testing.T) {
	s := NewChannelWorkerSlot(0, 1)
	if _, err := s.TrySend(costedMsg{"a", 1}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Send(costedMsg{"a", 1}, nil)
	}()

	s.Close()
	if err := <-done; err != ErrDisconnected {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

var _ types.ResourceCoster = costedMsg{}
