package vkd3d

import (
	"errors"
	"testing"

	"github.com/vkd3d-go/vkd3d/driver"
)

func TestNewCommandSignatureDrawMustBeLast(t *testing.T) {
	args := []driver.IndirectArgument{
		{Kind: driver.ArgDraw},
		{Kind: driver.ArgConstant, ConstantCount: 1},
	}
	if _, err := newCommandSignature(args); !errors.Is(err, driver.ErrInvalidArgument) {
		t.Fatalf("newCommandSignature: have %v, want wrapped ErrInvalidArgument", err)
	}
}

func TestNewCommandSignatureDispatchLastOK(t *testing.T) {
	args := []driver.IndirectArgument{
		{Kind: driver.ArgConstant, ConstantCount: 2},
		{Kind: driver.ArgDispatch},
	}
	sig, err := newCommandSignature(args)
	if err != nil {
		t.Fatalf("newCommandSignature: unexpected error %v", err)
	}
	if len(sig.Arguments()) != 2 {
		t.Fatalf("len(Arguments):\nhave %d\nwant 2", len(sig.Arguments()))
	}
}

func TestNewCommandSignatureClonesArguments(t *testing.T) {
	args := []driver.IndirectArgument{{Kind: driver.ArgDraw}}
	sig, err := newCommandSignature(args)
	if err != nil {
		t.Fatalf("newCommandSignature: unexpected error %v", err)
	}
	args[0].Kind = driver.ArgDispatch
	if sig.Arguments()[0].Kind != driver.ArgDraw {
		t.Fatal("commandSignature.Arguments: mutating the caller's slice changed the clone")
	}
}

func TestComputeStride(t *testing.T) {
	for _, x := range []struct {
		args []driver.IndirectArgument
		want int
	}{
		{[]driver.IndirectArgument{{Kind: driver.ArgConstant, ConstantCount: 3}}, 12},
		{[]driver.IndirectArgument{{Kind: driver.ArgVertexBufferView}}, 16},
		{[]driver.IndirectArgument{{Kind: driver.ArgIndexBufferView}}, 12},
		{[]driver.IndirectArgument{{Kind: driver.ArgConstantBufferView}}, 8},
		{[]driver.IndirectArgument{{Kind: driver.ArgDraw}}, 16},
		{[]driver.IndirectArgument{{Kind: driver.ArgDrawIndexed}}, 20},
		{[]driver.IndirectArgument{{Kind: driver.ArgDispatch}}, 12},
		{[]driver.IndirectArgument{
			{Kind: driver.ArgConstant, ConstantCount: 1},
			{Kind: driver.ArgVertexBufferView},
			{Kind: driver.ArgDrawIndexed},
		}, 4 + 16 + 20},
	} {
		if n := computeStride(x.args); n != x.want {
			t.Fatalf("computeStride(%v):\nhave %d\nwant %d", x.args, n, x.want)
		}
	}
}
