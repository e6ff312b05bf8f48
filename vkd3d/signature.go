package vkd3d

import (
	"fmt"

	"github.com/vkd3d-go/vkd3d/driver"
)

// commandSignature is an immutable, heap-cloned descriptor of an
// ExecuteIndirect argument layout.
//
// Grounded on the general "validate, then clone into owned storage"
// pattern used for pipeline/root-signature state
// (gviegas-neo3/driver/vk/pipeln.go keys pipelines on cloned state
// structs); the validation rule itself (a DRAW/DRAW_INDEXED/DISPATCH
// argument must be last) has no analogue there and is taken directly
// from, and exercised by, vkd3d-proton's d3d12_command_signature_init.
type commandSignature struct {
	stride int
	args   []driver.IndirectArgument
}

func newCommandSignature(args []driver.IndirectArgument) (*commandSignature, error) {
	for i, a := range args {
		switch a.Kind {
		case driver.ArgDraw, driver.ArgDrawIndexed, driver.ArgDispatch:
			if i != len(args)-1 {
				return nil, fmt.Errorf("vkd3d: command signature: %w: draw/dispatch argument must be last", driver.ErrInvalidArgument)
			}
		}
	}
	cloned := make([]driver.IndirectArgument, len(args))
	copy(cloned, args)
	return &commandSignature{stride: computeStride(cloned), args: cloned}, nil
}

func computeStride(args []driver.IndirectArgument) int {
	const (
		sizeofConstant = 4
		sizeofVBV      = 16
		sizeofIBV      = 12
		sizeofGPUVA    = 8
		sizeofDraw     = 16
		sizeofDrawIdx  = 20
		sizeofDispatch = 12
	)
	n := 0
	for _, a := range args {
		switch a.Kind {
		case driver.ArgConstant:
			n += a.ConstantCount * sizeofConstant
		case driver.ArgVertexBufferView:
			n += sizeofVBV
		case driver.ArgIndexBufferView:
			n += sizeofIBV
		case driver.ArgConstantBufferView, driver.ArgShaderResourceView, driver.ArgUnorderedAccessView:
			n += sizeofGPUVA
		case driver.ArgDraw:
			n += sizeofDraw
		case driver.ArgDrawIndexed:
			n += sizeofDrawIdx
		case driver.ArgDispatch:
			n += sizeofDispatch
		}
	}
	return n
}

func (s *commandSignature) Stride() int                          { return s.stride }
func (s *commandSignature) Arguments() []driver.IndirectArgument { return s.args }
