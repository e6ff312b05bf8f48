package driver

// Viewport describes a single D3D12 viewport.
type Viewport struct {
	X, Y, Width, Height   float32
	MinDepth, MaxDepth    float32
}

// Scissor describes a single D3D12 scissor rectangle.
type Scissor struct {
	Left, Top, Right, Bottom int
}

// ClearValue is the color or depth/stencil value used by a clear
// command or a deferred LOAD_OP_CLEAR.
type ClearValue struct {
	Color        [4]float32
	Depth        float32
	Stencil      uint32
	IsDepthStencil bool
}

// RenderTargetView and DepthStencilView identify bound attachment views.
// The concrete view object lives in the descriptor-heap/VA-map layers;
// the core only needs an opaque handle plus the bits it must track
// itself (format, resource kind) to drive barrier and render-pass logic.
type RenderTargetView struct {
	Handle   uint64
	Resource Resource
	Format   PixelFormat
}

type DepthStencilView struct {
	Handle   uint64
	Resource Resource
	Format   PixelFormat
	ReadOnly bool
}

// IndexFormat is the index-buffer element format.
type IndexFormat int

const (
	IndexUint16 IndexFormat = iota
	IndexUint32
)

// BufferCopy, ImageCopy and BufImgCopy describe the copy family.
type BufferCopy struct {
	Src, Dst         Resource
	SrcOff, DstOff   int64
	Size             int64
}

type Offset3D struct{ X, Y, Z int }
type Extent3D struct{ Width, Height, Depth int }

type ImageCopy struct {
	Src, Dst             Resource
	SrcOff, DstOff       Offset3D
	SrcLayer, DstLayer   int
	SrcLevel, DstLevel   int
	Size                 Extent3D
	Layers               int
}

type BufImgCopy struct {
	Buf      Resource
	BufOff   int64
	Stride   [2]int64
	Img      Resource
	ImgOff   Offset3D
	Layer    int
	Level    int
	Size     Extent3D
	DepthCopy bool
}

// BarrierKind discriminates the three kinds of ResourceBarrier.
type BarrierKind int

const (
	BarrierTransition BarrierKind = iota
	BarrierUAV
	BarrierAliasing
)

// ResourceBarrierDesc is one entry of a ResourceBarrier call.
type ResourceBarrierDesc struct {
	Kind         BarrierKind
	Resource     Resource
	Subresource  int
	StateBefore  ResourceState
	StateAfter   ResourceState
	BeginOnly    bool
	EndOnly      bool
}

// QueryKind enumerates query types for BeginQuery/EndQuery.
type QueryKind int

const (
	QueryOcclusion QueryKind = iota
	QueryOcclusionBinary
	QueryTimestamp
	QueryPipelineStats
	QueryStreamOutStats
)

// ExecuteIndirectCall binds a CommandSignature invocation to its
// argument and (optional) count buffers.
type ExecuteIndirectCall struct {
	Signature   CommandSignature
	ArgBuffer   Resource
	ArgOffset   int64
	MaxCount    int
	CountBuffer Resource
	CountOffset int64
}

// CommandList is the full D3D12 command-list contract, implementing
// every command family named in Recording is organized
// into logical blocks; BeginPass/EndPass, BeginWork/EndWork and
// BeginBlit/EndBlit are implicit in D3D12 itself (there is no
// client-visible Begin/End for render passes) so the implementation
// derives them internally — see vkd3d.CommandList's deferred
// render-pass bookkeeping. The interface below exposes the D3D12
// surface directly: clients call Draw/Dispatch/Copy*/etc. and the
// implementation opens and closes backend render passes as needed.
type CommandList interface {
	Destroyer

	// Begin puts the list in recording state, bound to alloc.
	// initialPSO may be nil.
	Begin(alloc CommandAllocator, initialPSO Pipeline) error

	// Close ends recording. Returns ErrInvalidArgument if the list was
	// marked invalid by a prior recording-time failure.
	Close() error

	// Reset discards all recorded state and rebinds the list to alloc,
	// requesting a fresh native command buffer from it. Must not be
	// called while still recording.
	Reset(alloc CommandAllocator, initialPSO Pipeline) error

	SetPipelineState(p Pipeline)

	SetViewports(vp []Viewport)
	SetScissors(s []Scissor)
	SetBlendColor(r, g, b, a float32)
	SetStencilRef(ref uint32)
	SetDepthBounds(min, max float32)
	SetPrimitiveTopology(topology int)

	IASetVertexBuffers(startSlot int, buf []Resource, off []int64, stride []int)
	IASetIndexBuffer(buf Resource, off int64, format IndexFormat)

	SetDescriptorHeaps(heaps []DescHeap)
	SetRootSignature(bp BindPoint, rs RootSignature)
	SetRootConstants(bp BindPoint, paramIndex int, values []uint32, destOffset int)
	SetRootDescriptor(bp BindPoint, paramIndex int, resource Resource, offset int64)
	SetRootDescriptorTable(bp BindPoint, paramIndex int, table DescHeap, heapCopy []int)

	Draw(vertCount, instCount, startVertex, startInstance int)
	DrawIndexed(idxCount, instCount, startIndex, baseVertex, startInstance int)
	Dispatch(groupX, groupY, groupZ int)
	ExecuteIndirect(call ExecuteIndirectCall)

	CopyBufferRegion(c *BufferCopy)
	CopyTextureRegion(c *ImageCopy)
	CopyBufferToTexture(c *BufImgCopy)
	CopyTextureToBuffer(c *BufImgCopy)
	ResolveSubresource(dst, src Resource, dstSub, srcSub int, format PixelFormat) error
	ResolveSubresourceRegion(dst Resource, dstSub int, dstX, dstY int, src Resource, srcSub int, rect [4]int, format PixelFormat) error

	ResourceBarrier(barriers []ResourceBarrierDesc)

	OMSetRenderTargets(rtv []RenderTargetView, dsv *DepthStencilView)
	ClearRenderTargetView(rtv RenderTargetView, color [4]float32, rects [][4]int)
	ClearDepthStencilView(dsv DepthStencilView, clearDepth, clearStencil bool, depth float32, stencil uint32, rects [][4]int)
	ClearUnorderedAccessViewUint(resource Resource, values [4]uint32, rects [][4]int)
	ClearUnorderedAccessViewFloat(resource Resource, values [4]float32, rects [][4]int)

	BeginQuery(kind QueryKind, index int)
	EndQuery(kind QueryKind, index int)
	ResolveQueryData(kind QueryKind, start, count int, dst Resource, dstOffset int64)
	SetPredication(buf Resource, off int64, equalZero bool)
}

// CommandAllocator backs a native command pool and the transient
// resources a recording generates.
type CommandAllocator interface {
	Destroyer

	// Reset fails with ErrWrongState if a list is still attached and
	// recording, or ErrBusy if outstanding submissions remain.
	Reset() error

	// OutstandingSubmissions returns the live count of batches submitted
	// from this allocator that have not yet completed.
	OutstandingSubmissions() int32
}

// Fence implements D3D12 fence semantics (non-monotonic host Signal,
// monotonic GPU Signal, SetEventOnCompletion) on top of a backend
// timeline semaphore.
type Fence interface {
	Destroyer

	GetCompletedValue() uint64
	Signal(value uint64) error
	SetEventOnCompletion(value uint64, ev Event) error
}

// SubmissionKind tags the variant carried by a CommandQueue's internal
// FIFO.
type SubmissionKind int

const (
	SubmissionWait SubmissionKind = iota
	SubmissionSignal
	SubmissionExecute
	SubmissionBindSparse
	SubmissionDrain
	SubmissionStop
)

// SparseBindMode discriminates the two BindSparse modes.
type SparseBindMode int

const (
	SparseBindUpdate SparseBindMode = iota
	SparseBindCopy
)

// SparseBindRange describes a single tile-region bind.
type SparseBindRange struct {
	Offset    int64
	Size      int64
	MemOffset int64
	IsImageBlock bool
}

// CommandQueue is the client-facing command queue: a serialized FIFO of
// typed submissions consumed by exactly one worker goroutine.
type CommandQueue interface {
	Destroyer

	Wait(f Fence, value uint64)
	Signal(f Fence, value uint64)
	ExecuteCommandLists(lists []CommandList)
	BindSparse(mode SparseBindMode, dst, src Resource, binds []SparseBindRange)

	// AcquireSerialized enqueues a Drain and blocks until the queue has
	// processed every submission enqueued before this call, then
	// returns the backend queue handle for exclusive foreign use.
	// ReleaseSerialized must be called to release it.
	AcquireSerialized() (any, error)
	ReleaseSerialized()
}
