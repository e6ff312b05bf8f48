package vkd3d

import (
	"log"
	"unsafe"
)

// logf is the single seam for every non-fatal warning this package
// emits (non-monotonic fence signal, BEGIN_ONLY splits, unhandled
// resource-state bits, dropped ExecuteIndirect count arguments; an
// empty clear-rect list is a whole-view clear and is not warned about),
// built on the standard log package -- see DESIGN.md for
// why no structured logging library is wired in here.
func logf(format string, args ...any) {
	log.Printf("vkd3d: "+format, args...)
}

// unsafePointer adapts a typed pNext chain link to unsafe.Pointer; kept
// as a named helper purely so the pNext-chaining call sites read less
// noisily.
func unsafePointer[T any](v *T) unsafe.Pointer {
	return unsafe.Pointer(v)
}
