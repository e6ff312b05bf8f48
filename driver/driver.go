// Package driver defines the contract between the command execution and
// synchronization core and the collaborators it does not implement: the
// backend device/instance, the shader/root-signature compiler, the
// descriptor-heap allocator, the GPU-VA map, the memory allocator, and
// format/sampler conversion tables. The vkd3d package implements these
// interfaces on top of Vulkan; other backends would implement the same
// contract.
package driver

import "errors"

// Sentinel errors surfaced at the public boundary. These correspond to
// the D3D12 HRESULT families a client observes (INVALIDARG, FAIL,
// OUTOFMEMORY) rather than to Vulkan result codes, which are backend
// detail wrapped by the vkd3d package.
var (
	// ErrInvalidArgument is returned for malformed arguments: a malformed
	// command signature, or Close on a command list invalidated by a bad
	// recording call (such as clearing an RTV that is not bound). Methods
	// without an error result, such as ResourceBarrier, do not report
	// through it.
	ErrInvalidArgument = errors.New("vkd3d: invalid argument")

	// ErrWrongState is returned when an operation is attempted on an
	// object that is not in the state it requires: Reset on a recording
	// command list, Close on a command list that never began recording,
	// or CommandAllocator.Reset while a command list is still attached
	// and recording.
	ErrWrongState = errors.New("vkd3d: wrong state")

	// ErrBusy is returned by CommandAllocator.Reset when outstanding
	// submissions have not yet completed. It is a buggy-client signal,
	// not retried internally.
	ErrBusy = errors.New("vkd3d: busy")

	// ErrOutOfMemory is returned when a staging array or backend pool
	// could not grow.
	ErrOutOfMemory = errors.New("vkd3d: out of memory")

	// ErrDeviceRemoved wraps a backend device-lost result. Operations do
	// not check the device-removed flag (see Device.Removed) before they
	// run, so it is not returned merely because the device was marked
	// removed earlier.
	ErrDeviceRemoved = errors.New("vkd3d: device removed")

	// ErrUnsupported is returned for operations that depend on a backend
	// feature the implementation does not use, such as a depth-stencil
	// resolve.
	ErrUnsupported = errors.New("vkd3d: unsupported")
)

// Destroyer is implemented by types that hold external (non-GC-managed)
// resources and therefore require an explicit Destroy call.
type Destroyer interface {
	Destroy()
}

// Event is the Win32-style event-handle contract a Fence signals when a
// registered completion value is reached. The concrete handle is
// platform-specific and owned by the host, not the core; a channel,
// sync.Cond, or a real Win32 HANDLE can all satisfy it.
type Event interface {
	// Signal wakes whatever is waiting on the event. It must be safe to
	// call from the fence worker goroutine and must not block.
	Signal()
}

// Device is the external collaborator that owns the backend
// instance/device handles, function pointers, and feature-support flags.
// It is the only piece of the system that talks directly to the Vulkan
// loader: in this module, vkd3d.Device implements it and is the one
// place that calls vk.CreateInstance/vk.CreateDevice.
type Device interface {
	// Features reports which optional backend capabilities are enabled.
	Features() Features

	// QueueFamily returns the family index and capability flags of the
	// queue family at the given index, as enumerated at device init.
	QueueFamily(index int) (family uint32, caps QueueCaps)

	// NewCommandQueue creates a client-facing command queue over the
	// given queue family index.
	NewCommandQueue(queueFamilyIndex int) (CommandQueue, error)

	// NewCommandAllocator creates a command allocator targeting the
	// given queue family's capabilities.
	NewCommandAllocator(queueFamilyIndex int) (CommandAllocator, error)

	// NewFence creates a fence with the given initial value.
	NewFence(initialValue uint64) (Fence, error)

	// NewCommandSignature validates and clones an ExecuteIndirect
	// argument layout.
	NewCommandSignature(args []IndirectArgument) (CommandSignature, error)

	// MarkRemoved flags the device as lost. Safe to call more than once.
	MarkRemoved(err error)

	// Removed reports whether MarkRemoved has been called.
	Removed() (bool, error)
}

// Features reports the optional backend capabilities the Device contract
// exposes to the core, per spec §6.
type Features struct {
	InlineUniformBlock       bool
	UpdateAfterBind          bool
	DrawIndirectCount        bool
	ConditionalRendering     bool
	TransformFeedback        bool
	TimelineSemaphoreMaxWait uint64 // max delta the backend accepts in a single wait
}

// QueueCaps is a bitmask of queue capability flags.
type QueueCaps uint32

// Queue capability bits.
const (
	QueueGraphics QueueCaps = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
	QueueTimestampValid
)
