package vkd3d

import (
	"sync"
	"testing"

	"github.com/vkd3d-go/vkd3d/driver"
)

// countEvent is a driver.Event that counts how many times it was
// signaled, for tests that never touch a real backend semaphore.
type countEvent struct {
	mu sync.Mutex
	n  int
}

func (e *countEvent) Signal() {
	e.mu.Lock()
	e.n++
	e.mu.Unlock()
}

func (e *countEvent) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}

// newTestFence builds a Fence without opening a device, since Signal,
// SetEventOnCompletion and the pending-value bookkeeping never touch the
// backend semaphore.
func newTestFence(initial uint64) *Fence {
	f := &Fence{value: initial, pendingTimelineValue: initial}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func TestFenceSignalMonotonic(t *testing.T) {
	f := newTestFence(10)
	// A regressive Signal must not move the visible value backwards:
	// CreateFence(10); Signal(5) => 10.
	if err := f.Signal(5); err != nil {
		t.Fatalf("Signal: unexpected error %v", err)
	}
	if v := f.GetCompletedValue(); v != 10 {
		t.Fatalf("GetCompletedValue:\nhave %d\nwant 10", v)
	}
	if err := f.Signal(20); err != nil {
		t.Fatalf("Signal: unexpected error %v", err)
	}
	if v := f.GetCompletedValue(); v != 20 {
		t.Fatalf("GetCompletedValue:\nhave %d\nwant 20", v)
	}
}

func TestFenceSetEventOnCompletionImmediate(t *testing.T) {
	f := newTestFence(5)
	ev := &countEvent{}
	if err := f.SetEventOnCompletion(3, ev); err != nil {
		t.Fatalf("SetEventOnCompletion: unexpected error %v", err)
	}
	if ev.count() != 1 {
		t.Fatalf("ev.count:\nhave %d\nwant 1 (already reached)", ev.count())
	}
}

func TestFenceSetEventOnCompletionDeferred(t *testing.T) {
	f := newTestFence(0)
	ev := &countEvent{}
	if err := f.SetEventOnCompletion(7, ev); err != nil {
		t.Fatalf("SetEventOnCompletion: unexpected error %v", err)
	}
	if ev.count() != 0 {
		t.Fatalf("ev.count:\nhave %d\nwant 0 (not reached yet)", ev.count())
	}
	f.signalFromWorker(6)
	if ev.count() != 0 {
		t.Fatalf("ev.count after signalFromWorker(6):\nhave %d\nwant 0", ev.count())
	}
	f.signalFromWorker(7)
	if ev.count() != 1 {
		t.Fatalf("ev.count after signalFromWorker(7):\nhave %d\nwant 1", ev.count())
	}
}

func TestFenceSetEventOnCompletionDuplicateIsNoop(t *testing.T) {
	f := newTestFence(0)
	ev := &countEvent{}
	f.SetEventOnCompletion(5, ev)
	f.SetEventOnCompletion(5, ev)
	if n := len(f.waits); n != 1 {
		t.Fatalf("len(f.waits):\nhave %d\nwant 1 (duplicate registration)", n)
	}
}

// TestFenceOutOfOrderHostSignalUnblocksGPUWait covers a Wait submission
// enqueued for a value that only a later host Signal call establishes
// as "pending" -- it must still be unblockable, because
// blockUntilPendingValueReaches watches pendingTimelineValue, which
// Signal bumps immediately, before any backend wait ever runs.
func TestFenceOutOfOrderHostSignalUnblocksGPUWait(t *testing.T) {
	f := newTestFence(0)
	unblocked := make(chan struct{})
	go func() {
		f.blockUntilPendingValueReaches(5)
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("blockUntilPendingValueReaches returned before any Signal")
	default:
	}

	f.Signal(5)

	<-unblocked // must not hang
}

func TestFenceCanElideAndCanSignal(t *testing.T) {
	f := newTestFence(10)
	if !f.canElideWaitSemaphore(10) {
		t.Fatal("canElideWaitSemaphore(10):\nhave false\nwant true (already completed)")
	}
	if f.canElideWaitSemaphore(11) {
		t.Fatal("canElideWaitSemaphore(11):\nhave true\nwant false (not yet completed)")
	}
	if !f.canSignalSemaphore(11) {
		t.Fatal("canSignalSemaphore(11):\nhave false\nwant true (advances the timeline)")
	}
	if f.canSignalSemaphore(10) {
		t.Fatal("canSignalSemaphore(10):\nhave true\nwant false (would not advance)")
	}
}

func TestFenceUpdatePendingValueWakesWaiters(t *testing.T) {
	f := newTestFence(0)
	done := make(chan struct{})
	go func() {
		f.blockUntilPendingValueReaches(3)
		close(done)
	}()
	f.lock()
	f.updatePendingValue(3)
	f.unlock()
	<-done
}

var _ driver.Event = (*countEvent)(nil)
