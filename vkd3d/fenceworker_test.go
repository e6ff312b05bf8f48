package vkd3d

import (
	"sync"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
)

// newTestFenceWorker builds a fenceWorker without starting run(), since
// run() blocks on vk.WaitSemaphores against a real device. Only the
// staging/active bookkeeping guarded by mu is exercised here.
func newTestFenceWorker() *fenceWorker {
	w := &fenceWorker{}
	w.wake = sync.NewCond(&w.mu)
	w.destroyAck = sync.NewCond(&w.mu)
	return w
}

func TestFenceWorkerEnqueueStagesAndCountsPendingOp(t *testing.T) {
	w := newTestFenceWorker()
	f := newTestFence(0)
	var sem vk.Semaphore
	w.enqueue(sem, f, 3, nil)

	w.mu.Lock()
	n := len(w.staging)
	w.mu.Unlock()
	if n != 1 {
		t.Fatalf("len(staging):\nhave %d\nwant 1", n)
	}
	if got := atomicLoad32(&f.pendingWorkerOps); got != 1 {
		t.Fatalf("pendingWorkerOps:\nhave %d\nwant 1", got)
	}
}

func TestFenceWorkerRemoveFenceBlocksUntilOpsDrain(t *testing.T) {
	w := newTestFenceWorker()
	f := newTestFence(0)
	var sem vk.Semaphore
	w.enqueue(sem, f, 3, nil)

	done := make(chan struct{})
	go func() {
		w.removeFence(f)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("removeFence:\nhave returned while an op is still pending\nwant blocked")
	case <-time.After(20 * time.Millisecond):
	}

	atomicAdd32(&f.pendingWorkerOps, -1)

	w.mu.Lock()
	w.destroyAck.Broadcast()
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("removeFence:\nhave not returned after op drained\nwant unblocked")
	}
}
