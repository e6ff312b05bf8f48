package driver

// BindPoint distinguishes the graphics and compute pipeline binding
// points; a CommandList tracks independent bound state for each.
type BindPoint int

const (
	BindGraphics BindPoint = iota
	BindCompute
)

// DynamicState is a bitmask of which pipeline states a PSO leaves
// dynamic (set via SetViewport/SetScissor/... rather than baked into the
// pipeline). SetPipelineState reapplies dirty |= new.DynamicState &
// ~old.DynamicState, per the dynamic-state reapplication rule.
type DynamicState uint32

const (
	DynViewport DynamicState = 1 << iota
	DynScissor
	DynBlendColor
	DynStencilRef
	DynDepthBounds
	DynPrimitiveTopology
)

// PixelFormat identifies a DSV/RTV pixel format, named after the
// corresponding DXGI_FORMAT. UnknownFormat is used by PSOs that do not
// bind a depth-stencil attachment at creation time.
type PixelFormat int

const (
	UnknownFormat PixelFormat = iota
	FormatRGBA8UNorm
	FormatRGBA8UNormSRGB
	FormatBGRA8UNorm
	FormatBGRA8UNormSRGB
	FormatRGBA16Float
	FormatRGBA32Float
	FormatR32Float
	FormatD32Float
	FormatD24UNormS8UInt
	FormatD32FloatS8UInt
)

// Pipeline is the external collaborator exposing everything a command
// list needs to bind a PSO and key its render-pass/framebuffer cache.
// The shader compiler that produces the underlying native pipeline is
// out of the core's scope.
type Pipeline interface {
	BindPoint() BindPoint
	DynamicState() DynamicState
	RenderTargetCount() int
	NullAttachmentMask() uint32
	DSVFormat() PixelFormat
	DSVLayout() Layout
	// RenderPassKey returns an opaque compatibility key: two pipelines
	// with equal keys can share a cached render pass/framebuffer.
	RenderPassKey() uint64
	// Resolve returns the backend pipeline and render pass appropriate
	// for the given dynamic-state snapshot and DSV format, creating and
	// caching them on first use (get_or_create_pipeline).
	Resolve(dyn DynamicState, dsvFormat PixelFormat) (handle, renderPass uint64, err error)
}

// RootSignatureFlags mirrors the D3D12 flags that change how a command
// list updates descriptors.
type RootSignatureFlags uint32

const (
	RSUsePushDescriptors RootSignatureFlags = 1 << iota
	RSUseInlineUniformBlock
	RSUseBindlessUAVCounters
)

// RootParameterKind discriminates the per-parameter shapes a root
// signature may declare.
type RootParameterKind int

const (
	RootConstants RootParameterKind = iota
	RootDescriptor
	RootDescriptorTable
)

// RootParameter describes one parameter slot of a root signature.
type RootParameter struct {
	Kind        RootParameterKind
	Constants   int // number of 32-bit values, for RootConstants
	TableRanges []DescriptorTableRange
}

// DescriptorTableRange describes one contiguous range within a
// descriptor-table root parameter.
type DescriptorTableRange struct {
	HeapType   int
	BaseOffset int
	Count      int
}

// RootSignature is the external collaborator exposing the pipeline
// layout and per-parameter metadata a command list needs to translate
// SetDescTable*/SetRootConstants/SetRootDescriptor* into backend update
// calls.
type RootSignature interface {
	Flags() RootSignatureFlags
	Parameters() []RootParameter
	PushConstantRange() (offset, size int, hasInlineUniformBlock bool)
	LayoutCompatibilityHash() uint64
}

// DescHeap is the external collaborator providing GPU-visible
// descriptor-table storage; the bindless index mapping and physical
// allocation live in the descriptor-heap/bindless layer, out of scope.
type DescHeap interface {
	HeapType() int
	GPUTableHandle() uint64
}

// IndirectArgumentKind enumerates the argument types a CommandSignature
// may contain.
type IndirectArgumentKind int

const (
	ArgConstant IndirectArgumentKind = iota
	ArgVertexBufferView
	ArgIndexBufferView
	ArgConstantBufferView
	ArgShaderResourceView
	ArgUnorderedAccessView
	ArgDraw
	ArgDrawIndexed
	ArgDispatch
)

// IndirectArgument describes one entry in an ExecuteIndirect argument
// layout.
type IndirectArgument struct {
	Kind           IndirectArgumentKind
	Slot           int // vertex buffer slot or root-parameter index, as applicable
	ConstantOffset int // destination offset in 32-bit values, for ArgConstant
	ConstantCount  int
}

// CommandSignature is an immutable, heap-cloned descriptor of an
// ExecuteIndirect argument layout.
type CommandSignature interface {
	Stride() int
	Arguments() []IndirectArgument
}
