// Package fuzzy throws many concurrent peers at a shared sender pool at
// once, the way the teacher's own fuzzy suite throws many concurrent
// commands at a cluster, and checks that nothing leaked and nothing was
// corrupted once the dust settles.
package fuzzy

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/stevepentland/tikv-writerouter/pkg/storeio"
	"github.com/stevepentland/tikv-writerouter/pkg/storeio/core"
	"github.com/stevepentland/tikv-writerouter/pkg/storeio/definition"
)

type writeMsg struct {
	peer string
	seq  int
}

func (m writeMsg) Peer() string { return m.peer }

// Test_ManyPeersConcurrentReschedule runs a pool of peers, each sending a
// long run of writes through its own WriteRouter against a shared worker
// pool and a shared RescheduleGate, and asserts the gate has drained back to
// zero (and so is within its configured cap) once every peer is done. The
// gate count is only checked after the run, not sampled while peers run.
func Test_ManyPeersConcurrentReschedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		peerCount    = 40
		writesPerRun = 60
		poolSize     = 6
		gateMax      = 3
	)

	slots := make(core.SharedSenderPool, poolSize)
	for i := range slots {
		slots[i] = core.NewChannelWorkerSlot(i, 32)
	}
	pool := core.NewPoolController(slots, gateMax)
	cfgTracker := storeio.NewConfigTracker(storeio.Config{
		StoreIOPoolSize:                poolSize,
		StoreIONotifyCapacity:          32,
		IORescheduleConcurrentMaxCount: gateMax,
		IORescheduleHotpotDuration:     2 * time.Millisecond,
	})
	metrics := storeio.NewMetrics(prometheus.NewRegistry())

	drainer := make(chan struct{})
	var drainWG sync.WaitGroup
	for _, s := range slots {
		drainWG.Add(1)
		go func(slot core.WorkerSlot) {
			defer drainWG.Done()
			cs := slot.(*core.ChannelWorkerSlot)
			for {
				select {
				case <-cs.Inbox():
				case <-drainer:
					for {
						select {
						case <-cs.Inbox():
						default:
							return
						}
					}
				}
			}
		}(s)
	}

	var peerWG sync.WaitGroup
	for p := 0; p < peerCount; p++ {
		peerWG.Add(1)
		go func(idx int) {
			defer peerWG.Done()

			tag := string(rune('A' + idx%26))
			ctx := core.NewContext(pool, cfgTracker, metrics)
			router := core.NewWriteRouter(tag, definition.NewDefaultLogger())

			router.SendWriteMsg(ctx, nil, writeMsg{tag, 0})
			for i := 1; i < writesPerRun; i++ {
				lu := uint64(i)
				router.SendWriteMsg(ctx, &lu, writeMsg{tag, i})
				if i%7 == 0 {
					router.CheckNewPersisted(ctx, uint64(i))
				}
			}
			router.CheckNewPersisted(ctx, uint64(writesPerRun))
		}(p)
	}

	if !waitOrTimeout(peerWG.Wait, 30*time.Second) {
		t.Fatalf("peers did not finish within 30 seconds")
	}

	view := pool.NewView()
	if got := view.Gate().Count(); got != 0 {
		t.Fatalf("expected reschedule gate to drain to 0, got %d", got)
	}
	if got := view.Gate().Count(); got > gateMax {
		t.Fatalf("gate exceeded its cap: %d > %d", got, gateMax)
	}

	close(drainer)
	if !waitOrTimeout(drainWG.Wait, 5*time.Second) {
		t.Fatalf("drainers did not finish within 5 seconds")
	}
}

func waitOrTimeout(fn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
