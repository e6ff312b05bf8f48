package vkd3d

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/driver"
)

// backendHandle is implemented by the concrete driver.Resource values
// the out-of-scope memory allocator produces. The allocator owns
// VkBuffer/VkImage creation and the GPU-VA map; this core only needs a
// seam back to the raw handles to record copy, clear and barrier
// commands against them.
type backendHandle interface {
	vkBuffer() vk.Buffer
	vkImage() vk.Image
	vkAspect() vk.ImageAspectFlags
	vkMemory() vk.DeviceMemory
}

func resourceBuffer(r driver.Resource) vk.Buffer {
	if h, ok := r.(backendHandle); ok {
		return h.vkBuffer()
	}
	logf("resource does not implement backendHandle: %T", r)
	return nil
}

func resourceImage(r driver.Resource) vk.Image {
	if h, ok := r.(backendHandle); ok {
		return h.vkImage()
	}
	logf("resource does not implement backendHandle: %T", r)
	return nil
}

func resourceAspect(r driver.Resource) vk.ImageAspectFlags {
	if h, ok := r.(backendHandle); ok {
		return h.vkAspect()
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// resourceMemory returns the VkDeviceMemory backing a sparse-residency
// heap resource, for use as the bind source of a BindSparse submission.
func resourceMemory(r driver.Resource) vk.DeviceMemory {
	if r == nil {
		return nil
	}
	if h, ok := r.(backendHandle); ok {
		return h.vkMemory()
	}
	logf("resource does not implement backendHandle: %T", r)
	return nil
}

// rootSignatureHandle is implemented by the concrete driver.RootSignature
// values the out-of-scope shader/root-signature compiler produces,
// exposing the raw VkPipelineLayout a command list needs to bind
// descriptor sets and push constants against.
type rootSignatureHandle interface {
	vkPipelineLayout() vk.PipelineLayout
}

func rootSignatureLayout(rs driver.RootSignature) vk.PipelineLayout {
	if h, ok := rs.(rootSignatureHandle); ok {
		return h.vkPipelineLayout()
	}
	logf("root signature does not implement rootSignatureHandle: %T", rs)
	return nil
}
