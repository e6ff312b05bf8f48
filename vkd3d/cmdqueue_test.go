package vkd3d

import (
	"sync"
	"testing"
	"time"

	"github.com/vkd3d-go/vkd3d/driver"
)

func newTestQueue() *commandQueue {
	q := &commandQueue{}
	q.wake = sync.NewCond(&q.mu)
	return q
}

// TestCommandQueueFIFOOrder exercises the run loop against subBindSparse
// (no binds, so it returns before any backend call) and subDrain
// entries, which is enough to
// verify ordering and the Drain barrier without an open device.
func TestCommandQueueFIFOOrder(t *testing.T) {
	q := newTestQueue()
	q.wg.Add(1)
	go q.run()

	done := make(chan struct{})
	q.enqueue(submission{kind: subBindSparse})
	q.enqueue(submission{kind: subDrain, done: done})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Drain submission never completed")
	}

	q.Destroy()
}

func TestCommandQueueDestroyStopsWorker(t *testing.T) {
	q := newTestQueue()
	q.wg.Add(1)
	go q.run()
	q.Destroy() // must return once the worker observes stopped and exits
}

func TestCompletionCallbackSignalDecrementsOutstanding(t *testing.T) {
	alloc := &commandAllocator{}
	alloc.outstanding = 2
	cl := &commandList{alloc: alloc}
	cb := &completionCallback{lists: []*commandList{cl}, fence: &Fence{}}
	cb.Signal()
	if n := alloc.OutstandingSubmissions(); n != 1 {
		t.Fatalf("OutstandingSubmissions after Signal:\nhave %d\nwant 1", n)
	}
}

func TestSubmissionKindConstantsAliasDriverKinds(t *testing.T) {
	for _, x := range []struct {
		have driver.SubmissionKind
		want driver.SubmissionKind
	}{
		{subWait, driver.SubmissionWait},
		{subSignal, driver.SubmissionSignal},
		{subExecute, driver.SubmissionExecute},
		{subBindSparse, driver.SubmissionBindSparse},
		{subDrain, driver.SubmissionDrain},
		{subStop, driver.SubmissionStop},
	} {
		if x.have != x.want {
			t.Fatalf("submission kind alias mismatch: have %v want %v", x.have, x.want)
		}
	}
}
