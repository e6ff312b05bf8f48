package vkd3d

import (
	"testing"

	"github.com/vkd3d-go/vkd3d/driver"
)

func TestTranslateStateCommon(t *testing.T) {
	s, a := translateState(driver.StateCommon, driver.KindBuffer, driver.QueueGraphics)
	if s != driver.SyncAllCommands {
		t.Fatalf("translateState(Common) sync:\nhave %v\nwant SyncAllCommands", s)
	}
	if a != driver.AccessMemoryRead|driver.AccessMemoryWrite {
		t.Fatalf("translateState(Common) access:\nhave %v\nwant MemoryRead|MemoryWrite", a)
	}
}

func TestTranslateStateGatesVertexInputByQueueCaps(t *testing.T) {
	gfxSync, gfxAccess := translateState(driver.StateVertexAndConstantBuffer, driver.KindBuffer, driver.QueueGraphics)
	if gfxSync&driver.SyncVertexInput == 0 {
		t.Fatal("graphics queue: expected SyncVertexInput bit to be set")
	}
	if gfxAccess&driver.AccessVertexAttributeRead == 0 {
		t.Fatal("graphics queue: expected AccessVertexAttributeRead bit to be set")
	}

	cpSync, cpAccess := translateState(driver.StateVertexAndConstantBuffer, driver.KindBuffer, driver.QueueCompute)
	if cpSync&driver.SyncVertexInput != 0 {
		t.Fatal("compute-only queue: SyncVertexInput must not be contributed")
	}
	if cpAccess&driver.AccessVertexAttributeRead != 0 {
		t.Fatal("compute-only queue: AccessVertexAttributeRead must not be contributed")
	}
	// A constant-buffer read is queue-agnostic.
	if cpAccess&driver.AccessUniformRead == 0 {
		t.Fatal("compute-only queue: expected AccessUniformRead regardless of queue caps")
	}
}

func TestTranslateStateBufferDropsImageOnlyAccess(t *testing.T) {
	_, a := translateState(driver.StateRenderTarget, driver.KindBuffer, driver.QueueGraphics)
	if a&(driver.AccessColorRead|driver.AccessColorWrite) != 0 {
		t.Fatal("buffer kind: color attachment access bits must be stripped")
	}
	_, a2 := translateState(driver.StateRenderTarget, driver.KindImage, driver.QueueGraphics)
	if a2&driver.AccessColorWrite == 0 {
		t.Fatal("image kind: color attachment write access must survive")
	}
}

func TestUAVShadingSyncGating(t *testing.T) {
	if s := uavShadingSync(driver.QueueCompute); s&driver.SyncVertexShading != 0 || s&driver.SyncFragmentShading != 0 {
		t.Fatal("compute-only queue: UAV sync must not include graphics shader stages")
	}
	if s := uavShadingSync(driver.QueueGraphics | driver.QueueCompute); s&driver.SyncComputeShading == 0 {
		t.Fatal("graphics+compute queue: UAV sync must include compute shader stage")
	}
}

func TestStateToLayout(t *testing.T) {
	for _, x := range []struct {
		state driver.ResourceState
		want  driver.Layout
	}{
		{driver.StatePresent, driver.LayoutPresent},
		{driver.StateRenderTarget, driver.LayoutColorTarget},
		{driver.StateDepthWrite, driver.LayoutDepthStencilTarget},
		{driver.StateDepthRead, driver.LayoutDepthStencilRead},
		{driver.StatePixelShaderResource, driver.LayoutShaderRead},
		{driver.StateCopyDest, driver.LayoutCopyDst},
		{driver.StateCopySource, driver.LayoutCopySrc},
		{driver.StateCommon, driver.LayoutCommon},
	} {
		if l := stateToLayout(x.state); l != x.want {
			t.Fatalf("stateToLayout(%v):\nhave %v\nwant %v", x.state, l, x.want)
		}
	}
}

// testResource is a minimal driver.Resource for translate_test.go; it
// does not implement backendHandle since translate.go never needs one.
type testResource struct {
	kind driver.ResourceKind
}

func (r *testResource) Kind() driver.ResourceKind        { return r.kind }
func (r *testResource) CommonLayout() driver.Layout      { return driver.LayoutCommon }
func (r *testResource) InitialState() driver.ResourceState { return driver.StateCommon }
func (r *testResource) PresentState() driver.ResourceState { return driver.StatePresent }
func (r *testResource) ConsumeInitialState() (driver.ResourceState, bool) {
	return driver.StateCommon, false
}

func TestBuildTransitionImageGetsLayouts(t *testing.T) {
	res := &testResource{kind: driver.KindImage}
	desc := driver.ResourceBarrierDesc{
		Kind:        driver.BarrierTransition,
		Resource:    res,
		Subresource: -1,
		StateBefore: driver.StateRenderTarget,
		StateAfter:  driver.StatePixelShaderResource,
	}
	tr := buildTransition(desc, driver.QueueGraphics)
	if tr.LayoutBefore != driver.LayoutColorTarget {
		t.Fatalf("LayoutBefore:\nhave %v\nwant LayoutColorTarget", tr.LayoutBefore)
	}
	if tr.LayoutAfter != driver.LayoutShaderRead {
		t.Fatalf("LayoutAfter:\nhave %v\nwant LayoutShaderRead", tr.LayoutAfter)
	}
	if tr.SyncBefore&driver.SyncColorOutput == 0 {
		t.Fatal("SyncBefore: expected SyncColorOutput")
	}
	if tr.SyncAfter&driver.SyncFragmentShading == 0 {
		t.Fatal("SyncAfter: expected SyncFragmentShading")
	}
}

func TestBuildTransitionBufferHasNoLayout(t *testing.T) {
	res := &testResource{kind: driver.KindBuffer}
	desc := driver.ResourceBarrierDesc{
		Kind:        driver.BarrierTransition,
		Resource:    res,
		Subresource: -1,
		StateBefore: driver.StateCopyDest,
		StateAfter:  driver.StateVertexAndConstantBuffer,
	}
	tr := buildTransition(desc, driver.QueueGraphics)
	if tr.LayoutBefore != driver.LayoutUndefined || tr.LayoutAfter != driver.LayoutUndefined {
		t.Fatalf("buffer transition must leave Layout fields unset, got before=%v after=%v", tr.LayoutBefore, tr.LayoutAfter)
	}
}
