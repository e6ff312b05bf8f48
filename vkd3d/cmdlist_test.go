package vkd3d

import (
	"testing"

	"github.com/vkd3d-go/vkd3d/driver"
)

// These tests exercise only the guard clauses and render-state
// bookkeeping that return before touching a native command buffer --
// everything else in commandList requires an open device.

func TestCommandListCloseWhileNotRecording(t *testing.T) {
	cl := &commandList{}
	if err := cl.Close(); err != driver.ErrWrongState {
		t.Fatalf("Close:\nhave %v\nwant %v", err, driver.ErrWrongState)
	}
}

func TestCommandListResetWhileRecording(t *testing.T) {
	cl := &commandList{recording: true}
	if err := cl.Reset(nil, nil); err != driver.ErrWrongState {
		t.Fatalf("Reset:\nhave %v\nwant %v", err, driver.ErrWrongState)
	}
}

func TestCommandListDestroyNilReceiverIsNoop(t *testing.T) {
	var cl *commandList
	cl.Destroy() // must not panic
}

func TestCommandListDestroyDetachesOnlyIfStillAttached(t *testing.T) {
	a := &commandAllocator{}
	cl := &commandList{alloc: a}
	a.attached = cl
	cl.Destroy()
	if a.attached != nil {
		t.Fatalf("a.attached:\nhave %v\nwant nil", a.attached)
	}

	// A second commandList attached afterwards must survive a stale
	// Destroy call from the first.
	other := &commandList{alloc: a}
	a.attached = other
	cl.Destroy()
	if a.attached != other {
		t.Fatalf("a.attached:\nhave %v\nwant %v (unrelated list must not be detached)", a.attached, other)
	}
}

func TestCommandListSetRootConstantsFailsWithoutRootSignature(t *testing.T) {
	cl := &commandList{}
	cl.SetRootConstants(driver.BindGraphics, 0, []uint32{1, 2}, 0)
	if !cl.invalid {
		t.Fatal("cl.invalid:\nhave false\nwant true (no root signature bound)")
	}
}

func TestCommandListSetRootDescriptorTableFailsWithoutRootSignature(t *testing.T) {
	cl := &commandList{}
	cl.SetRootDescriptorTable(driver.BindCompute, 0, nil, nil)
	if !cl.invalid {
		t.Fatal("cl.invalid:\nhave false\nwant true (no root signature bound)")
	}
}

func TestCommandListExecuteIndirectFailsOnEmptySignature(t *testing.T) {
	cl := &commandList{}
	sig, err := newCommandSignature(nil)
	if err != nil {
		t.Fatalf("newCommandSignature: unexpected error %v", err)
	}
	cl.ExecuteIndirect(driver.ExecuteIndirectCall{Signature: sig})
	if !cl.invalid {
		t.Fatal("cl.invalid:\nhave false\nwant true (empty argument list)")
	}
}

func TestCommandListClearRenderTargetViewUnknownViewFails(t *testing.T) {
	cl := &commandList{}
	cl.OMSetRenderTargets(nil, nil)
	cl.ClearRenderTargetView(driver.RenderTargetView{Handle: 42}, [4]float32{}, nil)
	if !cl.invalid {
		t.Fatal("cl.invalid:\nhave false\nwant true (rtv not bound)")
	}
}

func TestCommandListClearRenderTargetViewFoldsWholeClearWhilePassClosed(t *testing.T) {
	cl := &commandList{}
	rtv := driver.RenderTargetView{Handle: 7, Format: driver.FormatRGBA8UNorm}
	cl.OMSetRenderTargets([]driver.RenderTargetView{rtv}, nil)

	cl.ClearRenderTargetView(rtv, [4]float32{1, 0, 0, 1}, nil)
	if cl.invalid {
		t.Fatal("cl.invalid:\nhave true\nwant false")
	}
	if !cl.render.rtv[0].pending {
		t.Fatal("render.rtv[0].pending:\nhave false\nwant true (no rects, pass closed)")
	}
	if cl.render.rtv[0].clearColor != [4]float32{1, 0, 0, 1} {
		t.Fatalf("render.rtv[0].clearColor:\nhave %v\nwant [1 0 0 1]", cl.render.rtv[0].clearColor)
	}
	if cl.render.open {
		t.Fatal("render.open:\nhave true\nwant false (folding a clear must not open the pass)")
	}
}

func TestCommandListClearDepthStencilViewFailsWithoutBoundDSV(t *testing.T) {
	cl := &commandList{}
	cl.ClearDepthStencilView(driver.DepthStencilView{}, true, true, 1, 0, nil)
	if !cl.invalid {
		t.Fatal("cl.invalid:\nhave false\nwant true (no DSV bound)")
	}
}

func TestCommandListClearDepthStencilViewFoldsWholeClearWhilePassClosed(t *testing.T) {
	cl := &commandList{}
	dsv := driver.DepthStencilView{Handle: 9, Format: driver.FormatD32Float}
	cl.OMSetRenderTargets(nil, &dsv)

	cl.ClearDepthStencilView(dsv, true, true, 0.5, 3, nil)
	if cl.invalid {
		t.Fatal("cl.invalid:\nhave true\nwant false")
	}
	if !cl.render.dsv.pending {
		t.Fatal("render.dsv.pending:\nhave false\nwant true")
	}
	if cl.render.dsv.clearDepth != 0.5 || cl.render.dsv.clearStencil != 3 {
		t.Fatalf("render.dsv clear values:\nhave depth=%v stencil=%v\nwant depth=0.5 stencil=3", cl.render.dsv.clearDepth, cl.render.dsv.clearStencil)
	}
}

func TestCommandListOMSetRenderTargetsReplacesBoundSet(t *testing.T) {
	cl := &commandList{}
	rtv1 := driver.RenderTargetView{Handle: 1}
	cl.OMSetRenderTargets([]driver.RenderTargetView{rtv1}, nil)
	if len(cl.render.rtv) != 1 {
		t.Fatalf("len(render.rtv):\nhave %d\nwant 1", len(cl.render.rtv))
	}
	cl.OMSetRenderTargets(nil, nil)
	if len(cl.render.rtv) != 0 {
		t.Fatalf("len(render.rtv):\nhave %d\nwant 0 (replaced by empty set)", len(cl.render.rtv))
	}
}

func TestCommandListRtvIndexLooksUpByHandle(t *testing.T) {
	cl := &commandList{}
	cl.OMSetRenderTargets([]driver.RenderTargetView{{Handle: 5}, {Handle: 6}}, nil)
	if i := cl.rtvIndex(driver.RenderTargetView{Handle: 6}); i != 1 {
		t.Fatalf("rtvIndex(6):\nhave %d\nwant 1", i)
	}
	if i := cl.rtvIndex(driver.RenderTargetView{Handle: 99}); i != -1 {
		t.Fatalf("rtvIndex(99):\nhave %d\nwant -1", i)
	}
}
