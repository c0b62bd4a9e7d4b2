// Package cpu implements the CPU kernels behind primitives.
//
// Kernels are plain Go loops fanned out with internal/parallel over
// independent output coordinates. Each kernel family exposes a lookup table
// keyed by the operand data types; primitive descriptors resolve their
// kernel once through these tables and never branch on types at execution.
package cpu

import (
	"unsafe"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
)

// Impl is a selected kernel together with the name reported in logs.
type Impl[K any] struct {
	Name string
	Run  K
}

// element is the set of stored element types kernels read directly.
type element interface {
	~int8 | ~uint8 | ~int32 | ~float32
}

// view reinterprets raw buffer bytes as a slice of T.
func view[T element](data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var zero T
	n := len(data) / int(unsafe.Sizeof(zero))
	//nolint:gosec // buffers are 8-byte aligned and sized by their descriptor
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), n)
}

// implName builds "family:isa" names such as "x8s8s32x:avx512_core_vnni".
func implName(family string, isa engine.ISA) string {
	return family + ":" + isa.String()
}

// accRange returns the clamp bounds of float accumulation targeting dt.
func accRange(dt memory.DataType) (lo, hi float32) {
	if dt.IsInteger() {
		l, h := dt.Range()
		return float32(l), float32(h)
	}
	l, h := memory.F32.Range()
	return float32(l), float32(h)
}
