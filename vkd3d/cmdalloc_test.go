package vkd3d

import (
	"sync/atomic"
	"testing"

	"github.com/vkd3d-go/vkd3d/driver"
)

// These two guard checks are the first thing Reset does, before any
// backend call, so they can be exercised without an open device.

func TestCommandAllocatorResetWhileRecordingAttached(t *testing.T) {
	a := &commandAllocator{attached: &commandList{recording: true}}
	if err := a.Reset(); err != driver.ErrWrongState {
		t.Fatalf("Reset while attached+recording:\nhave %v\nwant ErrWrongState", err)
	}
}

func TestCommandAllocatorResetWhileOutstanding(t *testing.T) {
	a := &commandAllocator{}
	atomic.StoreInt32(&a.outstanding, 1)
	if err := a.Reset(); err != driver.ErrBusy {
		t.Fatalf("Reset with outstanding submissions:\nhave %v\nwant ErrBusy", err)
	}
}

func TestCommandAllocatorOutstandingSubmissions(t *testing.T) {
	a := &commandAllocator{}
	atomic.StoreInt32(&a.outstanding, 3)
	if n := a.OutstandingSubmissions(); n != 3 {
		t.Fatalf("OutstandingSubmissions:\nhave %d\nwant 3", n)
	}
}

func TestNewCommandSignatureAllowsEmptyArgs(t *testing.T) {
	sig, err := newCommandSignature(nil)
	if err != nil {
		t.Fatalf("newCommandSignature(nil): unexpected error %v", err)
	}
	if sig.Stride() != 0 {
		t.Fatalf("Stride():\nhave %d\nwant 0", sig.Stride())
	}
}
