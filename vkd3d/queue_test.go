package vkd3d

import "testing"

// acquire/release never touch the native handle themselves, only the
// mutex guarding it, so they are exercisable without an open device.

func TestVkQueueAcquireBlocksWhileLocked(t *testing.T) {
	q := &vkQueue{family: 2}
	released := make(chan struct{})
	q.mu.Lock()
	go func() {
		q.acquire()
		q.release()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("concurrent acquire:\nhave succeeded while mu held\nwant blocked")
	default:
	}
	q.mu.Unlock()
	<-released
}

func TestVkQueueAcquireIsExclusive(t *testing.T) {
	q := &vkQueue{}
	q.acquire()
	acquired := make(chan struct{})
	go func() {
		q.acquire()
		close(acquired)
		q.release()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire:\nhave returned while first holder active\nwant blocked")
	default:
	}
	q.release()
	<-acquired
}
