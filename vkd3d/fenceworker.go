package vkd3d

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// fenceEntry is one (semaphore, fence, target value, queue) tuple the
// worker is tracking, staged or active.
type fenceEntry struct {
	sem    vk.Semaphore
	fence  *Fence
	target uint64
	queue  *vkQueue
}

// fenceWorker is the singleton-per-device background goroutine that
// polls backend timeline semaphores and fans out completions to CPU
// fences and their registered event handles.
//
// Grounded on the channel-based completion pattern in
// gviegas-neo3/driver/vk/cmd.go (Driver.Commit's "go func(){ ...
// ch<-wk }()" background wait), generalized from "one goroutine per
// Commit call waiting on one VkFence" into a persistent staging/active-set
// worker, since this core needs exactly one long-lived worker per
// device rather than one per commit.
type fenceWorker struct {
	dev *Device

	mu      sync.Mutex
	wake    *sync.Cond
	destroyAck *sync.Cond

	staging []fenceEntry
	active  []fenceEntry // decomposed into parallel arrays just before the batch wait

	shouldExit          bool
	pendingFenceDestroy bool

	wg sync.WaitGroup
}

func newFenceWorker(dev *Device) *fenceWorker {
	w := &fenceWorker{dev: dev}
	w.wake = sync.NewCond(&w.mu)
	w.destroyAck = sync.NewCond(&w.mu)
	w.wg.Add(1)
	go w.run()
	return w
}

// enqueue stages a new tracked entry and wakes the worker. Grounded on
// vkd3d_enqueue_timeline_semaphore in original_source/libs/vkd3d/command.c:
// the pending-operation counter is incremented in the same critical
// section that appends to the staging list.
func (w *fenceWorker) enqueue(sem vk.Semaphore, fence *Fence, target uint64, queue *vkQueue) {
	w.mu.Lock()
	w.staging = append(w.staging, fenceEntry{sem, fence, target, queue})
	atomicAdd32(&fence.pendingWorkerOps, 1)
	w.mu.Unlock()
	w.wake.Signal()
}

// removeFence blocks until every tracked operation for fence has
// drained, so the caller (Fence.Destroy) may safely free the backend
// semaphore afterwards.
func (w *fenceWorker) removeFence(fence *Fence) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for atomicLoad32(&fence.pendingWorkerOps) != 0 {
		w.pendingFenceDestroy = true
		w.wake.Signal()
		w.destroyAck.Wait()
	}
	w.pendingFenceDestroy = false
}

func (w *fenceWorker) stop() {
	w.mu.Lock()
	w.shouldExit = true
	w.mu.Unlock()
	w.wake.Signal()
	w.wg.Wait()
}

// run is the worker's main loop: wait on every staged/active semaphore
// for any of them to reach its target, sweep completed entries off to
// their fences, and repeat until stop() is called and the tracked sets
// both drain.
func (w *fenceWorker) run() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		for len(w.active) == 0 && len(w.staging) == 0 && !w.shouldExit {
			if w.pendingFenceDestroy {
				w.destroyAck.Broadcast()
			}
			w.wake.Wait()
		}
		if w.shouldExit && len(w.active) == 0 && len(w.staging) == 0 {
			w.mu.Unlock()
			return
		}
		if len(w.staging) > 0 {
			w.active = append(w.active, w.staging...)
			w.staging = w.staging[:0]
		}
		active := w.active
		w.mu.Unlock()

		if len(active) == 0 {
			continue
		}

		// Step 1: batch-wait on every tracked semaphore, "wait for ANY".
		sems := make([]vk.Semaphore, len(active))
		vals := make([]uint64, len(active))
		for i, e := range active {
			sems[i] = e.sem
			vals[i] = e.target
		}
		waitInfo := vk.SemaphoreWaitInfo{
			SType:          vk.StructureTypeSemaphoreWaitInfo,
			Flags:          vk.SemaphoreWaitFlags(vk.SemaphoreWaitAnyBit),
			SemaphoreCount: uint32(len(sems)),
			PSemaphores:    sems,
			PValues:        vals,
		}
		// An infinite timeout is used, but the call must still return
		// on SUCCESS, TIMEOUT or an error so the outer loop can react
		// to newly staged entries or a pending destruction request;
		// goki/vulkan surfaces that as a normal (possibly non-nil)
		// vk.Result rather than blocking the Go runtime forever.
		vk.WaitSemaphores(w.dev.dev, &waitInfo, ^uint64(0))

		// Step 2: sweep for entries that reached their target.
		remaining := active[:0]
		for _, e := range active {
			var cur uint64
			vk.GetSemaphoreCounterValue(w.dev.dev, e.sem, &cur)
			if cur >= e.target {
				e.fence.signalFromWorker(cur)
				atomicAdd32(&e.fence.pendingWorkerOps, -1)
				continue
			}
			remaining = append(remaining, e)
		}

		w.mu.Lock()
		w.active = append([]fenceEntry(nil), remaining...)
		if w.pendingFenceDestroy {
			w.destroyAck.Broadcast()
		}
		w.mu.Unlock()
	}
}
