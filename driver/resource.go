package driver

// ResourceState is a D3D12 resource-state bitmask. It names the set of
// ways a resource may be accessed; the resource-state translator maps a
// mask of this type, plus a resource-kind discriminant and the issuing
// queue's capability flags, to a backend stage+access mask.
type ResourceState uint32

// Resource states. COMMON is the zero value and is also the sentinel
// used for "whatever the backend considers idle" — its translation
// default is ALL_COMMANDS stage with MEMORY_READ|MEMORY_WRITE access.
const (
	StateCommon ResourceState = 0
	StateVertexAndConstantBuffer ResourceState = 1 << iota
	StateIndexBuffer
	StateRenderTarget
	StateUnorderedAccess
	StateDepthWrite
	StateDepthRead
	StateNonPixelShaderResource
	StatePixelShaderResource
	StateStreamOut
	StateIndirectArgument
	StateCopyDest
	StateCopySource
	StateResolveDest
	StateResolveSource
	StatePresent
	StatePredication
)

// ResourceKind distinguishes a buffer from an image family resource, since
// the translator and the barrier builder need to know whether a layout
// transition applies.
type ResourceKind int

const (
	KindBuffer ResourceKind = iota
	KindImage
)

// Resource is the external collaborator exposing whatever a resource
// needs for barrier translation and copy/clear commands. The descriptor
// heap, memory allocator, and VA map that actually back a resource are
// out of the core's scope; this interface is the seam.
type Resource interface {
	Kind() ResourceKind
	CommonLayout() Layout
	InitialState() ResourceState
	PresentState() ResourceState
	// ConsumeInitialState clears the initial-state flag after the first
	// undefined/preinitialized -> common transition has been emitted.
	ConsumeInitialState() (was ResourceState, hadFlag bool)
}

// Layout is the backend image layout a resource transitions between.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutPreinitialized
	LayoutCommon
	LayoutColorTarget
	LayoutDepthStencilTarget
	LayoutDepthStencilRead
	LayoutCopySrc
	LayoutCopyDst
	LayoutResolveSrc
	LayoutResolveDst
	LayoutShaderRead
	LayoutPresent
)

// Sync is a backend pipeline-stage scope, the output of translating a
// ResourceState.
type Sync uint32

const (
	SyncNone Sync = 0
	SyncDrawIndirect Sync = 1 << iota
	SyncVertexInput
	SyncVertexShading
	SyncFragmentShading
	SyncComputeShading
	SyncColorOutput
	SyncDepthStencilOutput
	SyncCopy
	SyncResolve
	SyncAllCommands
)

// Access is a backend memory-access scope, the output of translating a
// ResourceState.
type Access uint32

const (
	AccessNone Access = 0
	AccessIndirectRead Access = 1 << iota
	AccessVertexAttributeRead
	AccessIndexRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorRead
	AccessColorWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessTransferRead
	AccessTransferWrite
	AccessMemoryRead
	AccessMemoryWrite
)

// Barrier is a single translated synchronization scope: the
// before/after stage and access masks computed from a ResourceState
// transition or a UAV barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition extends Barrier with an image layout change, for resources
// whose backend representation carries a layout (KindImage).
type Transition struct {
	Barrier
	LayoutBefore Layout
	LayoutAfter  Layout
	Resource     Resource
	Subresource  int // -1 means "all subresources"
}
