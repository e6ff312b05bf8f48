package vkd3d

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/driver"
)

// opaqueResource implements driver.Resource but not backendHandle, the
// way a collaborator resource would look before the out-of-scope memory
// allocator wires in a concrete backend-handle implementation.
type opaqueResource struct{ testResource }

// handleResource implements both driver.Resource and backendHandle.
type handleResource struct {
	testResource
	buf    vk.Buffer
	img    vk.Image
	aspect vk.ImageAspectFlags
	mem    vk.DeviceMemory
}

func (h *handleResource) vkBuffer() vk.Buffer           { return h.buf }
func (h *handleResource) vkImage() vk.Image             { return h.img }
func (h *handleResource) vkAspect() vk.ImageAspectFlags { return h.aspect }
func (h *handleResource) vkMemory() vk.DeviceMemory     { return h.mem }

func TestResourceBufferFallsBackWithoutBackendHandle(t *testing.T) {
	r := &opaqueResource{}
	if b := resourceBuffer(r); b != nil {
		t.Fatalf("resourceBuffer on non-backendHandle resource:\nhave %v\nwant nil", b)
	}
}

func TestResourceAspectDefaultsToColor(t *testing.T) {
	r := &opaqueResource{}
	if a := resourceAspect(r); a != vk.ImageAspectFlags(vk.ImageAspectColorBit) {
		t.Fatalf("resourceAspect default:\nhave %v\nwant ImageAspectColorBit", a)
	}
}

func TestResourceHandleRoundTrip(t *testing.T) {
	h := &handleResource{buf: vk.Buffer(1), img: vk.Image(2), aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit), mem: vk.DeviceMemory(3)}
	if b := resourceBuffer(h); b != h.buf {
		t.Fatalf("resourceBuffer:\nhave %v\nwant %v", b, h.buf)
	}
	if i := resourceImage(h); i != h.img {
		t.Fatalf("resourceImage:\nhave %v\nwant %v", i, h.img)
	}
	if a := resourceAspect(h); a != h.aspect {
		t.Fatalf("resourceAspect:\nhave %v\nwant %v", a, h.aspect)
	}
	if m := resourceMemory(h); m != h.mem {
		t.Fatalf("resourceMemory:\nhave %v\nwant %v", m, h.mem)
	}
}

func TestResourceMemoryNilResourceReturnsNil(t *testing.T) {
	if m := resourceMemory(nil); m != nil {
		t.Fatalf("resourceMemory(nil):\nhave %v\nwant nil", m)
	}
}

func TestResourceMemoryFallsBackWithoutBackendHandle(t *testing.T) {
	r := &opaqueResource{}
	if m := resourceMemory(r); m != nil {
		t.Fatalf("resourceMemory on non-backendHandle resource:\nhave %v\nwant nil", m)
	}
}

type opaqueRootSignature struct{}

func (opaqueRootSignature) Flags() driver.RootSignatureFlags { return 0 }
func (opaqueRootSignature) Parameters() []driver.RootParameter { return nil }
func (opaqueRootSignature) PushConstantRange() (int, int, bool) { return 0, 0, false }
func (opaqueRootSignature) LayoutCompatibilityHash() uint64 { return 0 }

func TestRootSignatureLayoutFallsBackWithoutSeam(t *testing.T) {
	rs := opaqueRootSignature{}
	if l := rootSignatureLayout(rs); l != nil {
		t.Fatalf("rootSignatureLayout on non-seam root signature:\nhave %v\nwant nil", l)
	}
}
