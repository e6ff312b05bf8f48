package vkd3d

import "testing"

func TestBeginRenderPassIfNeededNoopWithoutBoundTargets(t *testing.T) {
	cl := &commandList{}
	cl.beginRenderPassIfNeeded()
	if cl.render.open {
		t.Fatal("beginRenderPassIfNeeded: pass must not open with no bound RTV/DSV")
	}
}

func TestEndRenderPassIfOpenNoopWhenNotOpen(t *testing.T) {
	cl := &commandList{}
	// render.open is false; endRenderPassIfOpen must return without
	// touching cl.cb (nil here, which would panic if a real
	// vkCmdEndRendering call were attempted).
	cl.endRenderPassIfOpen()
	if cl.render.open {
		t.Fatal("endRenderPassIfOpen: open must remain false")
	}
}

func TestBoundTargetRecordedClearIsPending(t *testing.T) {
	rs := &renderState{
		rtv: []boundTarget{{pending: true, clearColor: [4]float32{1, 0, 0, 1}}},
	}
	if !rs.rtv[0].pending {
		t.Fatal("boundTarget.pending must start true for a freshly recorded whole-attachment clear")
	}
}
