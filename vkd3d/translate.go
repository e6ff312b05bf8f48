package vkd3d

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/driver"
)

// translateState maps a D3D12 resource-state bitmask, the resource kind
// (to distinguish buffer vs image), and the issuing queue's capability
// flags to the driver package's abstract Sync/Access scopes. The result
// is backend-agnostic; convSync/convAccess turn it into Vulkan flags
// only at the point a barrier is actually recorded.
//
// Grounded on gviegas-neo3/driver/vk/cmd.go's convSync/convAccess
// bit-iterators, which walk a driver.Sync/driver.Access mask the same
// way; generalized to also gate shader-stage bits by the issuing
// queue's capability flags (graphics-only queues contribute
// vertex-input bits, compute-only queues do not), which gviegas-neo3's
// queue-agnostic vocabulary has no analogue for.
func translateState(state driver.ResourceState, kind driver.ResourceKind, caps driver.QueueCaps) (driver.Sync, driver.Access) {
	if state == driver.StateCommon {
		return driver.SyncAllCommands, driver.AccessMemoryRead | driver.AccessMemoryWrite
	}

	var sync driver.Sync
	var access driver.Access
	handled := driver.ResourceState(0)

	if state&driver.StateVertexAndConstantBuffer != 0 {
		access |= driver.AccessUniformRead
		if caps&driver.QueueGraphics != 0 {
			sync |= driver.SyncVertexInput
			access |= driver.AccessVertexAttributeRead
		}
		sync |= uavShadingSync(caps)
		handled |= driver.StateVertexAndConstantBuffer
	}
	if state&driver.StateIndexBuffer != 0 {
		if caps&driver.QueueGraphics != 0 {
			sync |= driver.SyncVertexInput
			access |= driver.AccessIndexRead
		}
		handled |= driver.StateIndexBuffer
	}
	if state&driver.StateRenderTarget != 0 {
		sync |= driver.SyncColorOutput
		access |= driver.AccessColorRead | driver.AccessColorWrite
		handled |= driver.StateRenderTarget
	}
	if state&driver.StateUnorderedAccess != 0 {
		sync |= uavShadingSync(caps)
		access |= driver.AccessShaderRead | driver.AccessShaderWrite
		handled |= driver.StateUnorderedAccess
	}
	if state&driver.StateDepthWrite != 0 {
		sync |= driver.SyncDepthStencilOutput
		access |= driver.AccessDepthStencilWrite | driver.AccessDepthStencilRead
		handled |= driver.StateDepthWrite
	}
	if state&driver.StateDepthRead != 0 {
		sync |= driver.SyncDepthStencilOutput
		access |= driver.AccessDepthStencilRead
		handled |= driver.StateDepthRead
	}
	if state&driver.StateNonPixelShaderResource != 0 {
		sync |= uavShadingSync(caps) &^ driver.SyncFragmentShading
		access |= driver.AccessShaderRead
		handled |= driver.StateNonPixelShaderResource
	}
	if state&driver.StatePixelShaderResource != 0 {
		sync |= uavShadingSync(caps) & driver.SyncFragmentShading
		access |= driver.AccessShaderRead
		handled |= driver.StatePixelShaderResource
	}
	if state&driver.StateStreamOut != 0 {
		sync |= driver.SyncVertexShading
		access |= driver.AccessShaderWrite
		handled |= driver.StateStreamOut
	}
	if state&driver.StateIndirectArgument != 0 {
		sync |= driver.SyncDrawIndirect
		access |= driver.AccessIndirectRead
		handled |= driver.StateIndirectArgument
	}
	if state&driver.StateCopyDest != 0 {
		sync |= driver.SyncCopy
		access |= driver.AccessTransferWrite
		handled |= driver.StateCopyDest
	}
	if state&driver.StateCopySource != 0 {
		sync |= driver.SyncCopy
		access |= driver.AccessTransferRead
		handled |= driver.StateCopySource
	}
	if state&driver.StateResolveDest != 0 {
		sync |= driver.SyncResolve
		access |= driver.AccessTransferWrite
		handled |= driver.StateResolveDest
	}
	if state&driver.StateResolveSource != 0 {
		sync |= driver.SyncResolve
		access |= driver.AccessTransferRead
		handled |= driver.StateResolveSource
	}
	if state&driver.StatePredication != 0 {
		sync |= driver.SyncDrawIndirect
		access |= driver.AccessIndirectRead
		handled |= driver.StatePredication
	}
	// StatePresent is never a backend access in itself; it is a layout
	// sentinel consumed by the transition path, never by translateState.

	if kind == driver.KindBuffer {
		access &^= driver.AccessColorRead | driver.AccessColorWrite |
			driver.AccessDepthStencilRead | driver.AccessDepthStencilWrite
	}

	if unknown := state &^ (handled | driver.StatePresent); unknown != 0 {
		logf("translateState: unhandled resource-state bits 0x%x", uint32(unknown))
	}
	return sync, access
}

// uavShadingSync returns the shader stages a UAV access scope spans,
// gated by which shader stages the issuing queue's capability flags
// actually expose -- a compute-only queue never contributes vertex or
// fragment stages.
func uavShadingSync(caps driver.QueueCaps) driver.Sync {
	var s driver.Sync
	if caps&driver.QueueGraphics != 0 {
		s |= driver.SyncVertexShading | driver.SyncFragmentShading
	}
	if caps&driver.QueueCompute != 0 {
		s |= driver.SyncComputeShading
	}
	return s
}

// stateToLayout returns the backend image layout a given state implies,
// used when building a Transition. Buffers have no layout and callers
// must not invoke this for KindBuffer resources.
func stateToLayout(state driver.ResourceState) driver.Layout {
	switch {
	case state&driver.StatePresent != 0:
		return driver.LayoutPresent
	case state&driver.StateRenderTarget != 0:
		return driver.LayoutColorTarget
	case state&driver.StateDepthWrite != 0:
		return driver.LayoutDepthStencilTarget
	case state&driver.StateDepthRead != 0:
		return driver.LayoutDepthStencilRead
	case state&(driver.StatePixelShaderResource|driver.StateNonPixelShaderResource) != 0:
		return driver.LayoutShaderRead
	case state&driver.StateCopyDest != 0:
		return driver.LayoutCopyDst
	case state&driver.StateCopySource != 0:
		return driver.LayoutCopySrc
	case state&driver.StateResolveDest != 0:
		return driver.LayoutResolveDst
	case state&driver.StateResolveSource != 0:
		return driver.LayoutResolveSrc
	default:
		return driver.LayoutCommon
	}
}

// buildTransition translates a single Transition barrier descriptor
// into a fully populated driver.Transition. PRESENT gets no special
// case: for an image both layouts come from stateToLayout (PRESENT maps
// to LayoutPresent), and buffers get no layout. ResourceBarrier records
// each image transition as its own image-memory barrier and each buffer
// transition as its own memory barrier; transitions are not merged into
// one global memory barrier per call.
func buildTransition(desc driver.ResourceBarrierDesc, caps driver.QueueCaps) driver.Transition {
	beforeSync, beforeAccess := translateState(desc.StateBefore, desc.Resource.Kind(), caps)
	afterSync, afterAccess := translateState(desc.StateAfter, desc.Resource.Kind(), caps)
	t := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   beforeSync,
			SyncAfter:    afterSync,
			AccessBefore: beforeAccess,
			AccessAfter:  afterAccess,
		},
		Resource:    desc.Resource,
		Subresource: desc.Subresource,
	}
	if desc.Resource.Kind() == driver.KindImage {
		t.LayoutBefore = stateToLayout(desc.StateBefore)
		t.LayoutAfter = stateToLayout(desc.StateAfter)
	}
	return t
}

// convSync converts the driver package's abstract Sync scope into a
// Vulkan VkPipelineStageFlags2 bitmask, at the point a barrier is
// actually recorded into a command buffer.
//
// Grounded directly on gviegas-neo3/driver/vk/cmd.go's convSync.
func convSync(s driver.Sync) vk.PipelineStageFlags2 {
	if s == driver.SyncNone {
		return 0
	}
	var f vk.PipelineStageFlags2
	if s&driver.SyncAllCommands != 0 {
		return vk.PipelineStageFlags2(vk.PipelineStage2AllCommandsBit)
	}
	if s&driver.SyncDrawIndirect != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2DrawIndirectBit)
	}
	if s&driver.SyncVertexInput != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2VertexInputBit | vk.PipelineStage2IndexInputBit)
	}
	if s&driver.SyncVertexShading != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2VertexShaderBit)
	}
	if s&driver.SyncFragmentShading != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2FragmentShaderBit)
	}
	if s&driver.SyncComputeShading != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2ComputeShaderBit)
	}
	if s&driver.SyncColorOutput != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2ColorAttachmentOutputBit)
	}
	if s&driver.SyncDepthStencilOutput != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2EarlyFragmentTestsBit | vk.PipelineStage2LateFragmentTestsBit)
	}
	if s&driver.SyncCopy != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2CopyBit)
	}
	if s&driver.SyncResolve != 0 {
		f |= vk.PipelineStageFlags2(vk.PipelineStage2ResolveBit)
	}
	return f
}

// convAccess converts the driver package's abstract Access scope into a
// Vulkan VkAccessFlags2 bitmask.
//
// Grounded directly on gviegas-neo3/driver/vk/cmd.go's convAccess.
func convAccess(a driver.Access) vk.AccessFlags2 {
	var f vk.AccessFlags2
	if a&driver.AccessIndirectRead != 0 {
		f |= vk.AccessFlags2(vk.Access2IndirectCommandReadBit)
	}
	if a&driver.AccessVertexAttributeRead != 0 {
		f |= vk.AccessFlags2(vk.Access2VertexAttributeReadBit)
	}
	if a&driver.AccessIndexRead != 0 {
		f |= vk.AccessFlags2(vk.Access2IndexReadBit)
	}
	if a&driver.AccessUniformRead != 0 {
		f |= vk.AccessFlags2(vk.Access2UniformReadBit)
	}
	if a&driver.AccessShaderRead != 0 {
		f |= vk.AccessFlags2(vk.Access2ShaderReadBit)
	}
	if a&driver.AccessShaderWrite != 0 {
		f |= vk.AccessFlags2(vk.Access2ShaderWriteBit)
	}
	if a&driver.AccessColorRead != 0 {
		f |= vk.AccessFlags2(vk.Access2ColorAttachmentReadBit)
	}
	if a&driver.AccessColorWrite != 0 {
		f |= vk.AccessFlags2(vk.Access2ColorAttachmentWriteBit)
	}
	if a&driver.AccessDepthStencilRead != 0 {
		f |= vk.AccessFlags2(vk.Access2DepthStencilAttachmentReadBit)
	}
	if a&driver.AccessDepthStencilWrite != 0 {
		f |= vk.AccessFlags2(vk.Access2DepthStencilAttachmentWriteBit)
	}
	if a&driver.AccessTransferRead != 0 {
		f |= vk.AccessFlags2(vk.Access2TransferReadBit)
	}
	if a&driver.AccessTransferWrite != 0 {
		f |= vk.AccessFlags2(vk.Access2TransferWriteBit)
	}
	if a&driver.AccessMemoryRead != 0 {
		f |= vk.AccessFlags2(vk.Access2MemoryReadBit)
	}
	if a&driver.AccessMemoryWrite != 0 {
		f |= vk.AccessFlags2(vk.Access2MemoryWriteBit)
	}
	return f
}

// convPixelFormat converts a driver.PixelFormat into a Vulkan VkFormat.
//
// Grounded on gviegas-neo3/driver/vk/image.go's convPixelFmt switch.
func convPixelFormat(f driver.PixelFormat) vk.Format {
	switch f {
	case driver.FormatRGBA8UNorm:
		return vk.FormatR8g8b8a8Unorm
	case driver.FormatRGBA8UNormSRGB:
		return vk.FormatR8g8b8a8Srgb
	case driver.FormatBGRA8UNorm:
		return vk.FormatB8g8r8a8Unorm
	case driver.FormatBGRA8UNormSRGB:
		return vk.FormatB8g8r8a8Srgb
	case driver.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case driver.FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case driver.FormatR32Float:
		return vk.FormatR32Sfloat
	case driver.FormatD32Float:
		return vk.FormatD32Sfloat
	case driver.FormatD24UNormS8UInt:
		return vk.FormatD24UnormS8Uint
	case driver.FormatD32FloatS8UInt:
		return vk.FormatD32SfloatS8Uint
	default:
		return vk.FormatUndefined
	}
}

// convLayout converts a driver.Layout into a Vulkan VkImageLayout.
func convLayout(l driver.Layout) vk.ImageLayout {
	switch l {
	case driver.LayoutUndefined:
		return vk.ImageLayoutUndefined
	case driver.LayoutPreinitialized:
		return vk.ImageLayoutPreinitialized
	case driver.LayoutColorTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case driver.LayoutDepthStencilTarget:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case driver.LayoutDepthStencilRead:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case driver.LayoutCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.LayoutCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.LayoutResolveSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.LayoutResolveDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.LayoutShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case driver.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutGeneral
	}
}
