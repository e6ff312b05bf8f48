package vkd3d

import (
	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d/driver"
)

// D3D12 has no client-visible render-pass object: OMSetRenderTargets
// only binds views, and a render pass opens and closes implicitly
// around the next draw. Grounded on gviegas-neo3/driver/vk/cmd.go's
// BeginPass/EndPass, which already builds VkRenderingAttachmentInfo
// structs per call rather than caching a VkRenderPass/VkFramebuffer
// pair -- this core adopts the same dynamic-rendering approach
// (vkCmdBeginRendering/vkCmdEndRendering), which needs no render-pass
// cache at all: the pending-clear bookkeeping below is the only state
// that survives between OMSetRenderTargets and the next draw.

// boundTarget is one bound RTV or the DSV, plus whatever pending clear
// ClearRenderTargetView/ClearDepthStencilView has recorded for it since
// the render pass was last closed.
type boundTarget struct {
	view       driver.Resource
	handle     uint64
	format     driver.PixelFormat
	clearColor [4]float32
	clearDepth float32
	clearStencil uint32
	clearDepthStencil bool
	pending    bool // a whole-attachment clear is foldable into LOAD_OP_CLEAR
}

// renderState is the command list's render-pass-in-progress tracker: a
// render pass opens lazily on the first draw/clear-with-rects after
// OMSetRenderTargets and closes on the next OMSetRenderTargets,
// ResourceBarrier, Close, dispatch, copy, resolve, query or UAV clear.
type renderState struct {
	open bool
	rtv  []boundTarget
	dsv  *boundTarget
	dsvReadOnly bool
}

// beginRenderPassIfNeeded opens the dynamic-rendering pass if one is not already
// open, folding any whole-attachment pending clears into LOAD_OP_CLEAR:
// a full clear recorded before the first draw costs no extra
// vkCmdClearAttachments call.
func (cl *commandList) beginRenderPassIfNeeded() {
	rs := &cl.render
	if rs.open {
		return
	}
	if len(rs.rtv) == 0 && rs.dsv == nil {
		return
	}
	colorAtts := make([]vk.RenderingAttachmentInfo, len(rs.rtv))
	for i := range rs.rtv {
		t := &rs.rtv[i]
		loadOp := vk.AttachmentLoadOpLoad
		var clear vk.ClearValue
		if t.pending {
			loadOp = vk.AttachmentLoadOpClear
			clear.SetColor(t.clearColor[:])
			t.pending = false
		}
		colorAtts[i] = vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   vk.ImageView(t.handle),
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      loadOp,
			StoreOp:     vk.AttachmentStoreOpStore,
			ClearValue:  clear,
		}
	}
	var dsAtt *vk.RenderingAttachmentInfo
	if rs.dsv != nil {
		t := rs.dsv
		loadOp := vk.AttachmentLoadOpLoad
		var clear vk.ClearValue
		if t.pending {
			loadOp = vk.AttachmentLoadOpClear
			clear.SetDepthStencil(t.clearDepth, t.clearStencil)
			t.pending = false
		}
		layout := vk.ImageLayoutDepthStencilAttachmentOptimal
		if rs.dsvReadOnly {
			layout = vk.ImageLayoutDepthStencilReadOnlyOptimal
		}
		dsAtt = &vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   vk.ImageView(t.handle),
			ImageLayout: layout,
			LoadOp:      loadOp,
			StoreOp:     vk.AttachmentStoreOpStore,
			ClearValue:  clear,
		}
	}
	info := vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(colorAtts)),
		PColorAttachments:    colorAtts,
	}
	if dsAtt != nil {
		info.PDepthAttachment = dsAtt
		info.PStencilAttachment = dsAtt
	}
	vk.CmdBeginRendering(cl.cb, &info)
	rs.open = true
}

// endRenderPassIfOpen closes the dynamic-rendering pass, if any is
// open. Called before ResourceBarrier, a new OMSetRenderTargets, Close,
// and every dispatch, copy, resolve, query or UAV-clear command -- a
// render pass must never span a barrier.
func (cl *commandList) endRenderPassIfOpen() {
	if !cl.render.open {
		return
	}
	vk.CmdEndRendering(cl.cb)
	cl.render.open = false
}
