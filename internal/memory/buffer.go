package memory

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/status"
)

// Buffer is memory bound to exactly one resolved layout and one engine.
// It is owned by whoever allocated it; primitives never mutate their inputs.
type Buffer struct {
	desc Desc
	eng  *engine.Engine
	data []byte
}

// NewBuffer allocates zeroed memory for desc on eng.
func NewBuffer(desc Desc, eng *engine.Engine) (*Buffer, error) {
	if desc.IsZero() {
		return nil, status.Invalidf("memory", "empty descriptor")
	}
	if desc.IsAny() {
		return nil, status.Invalidf("memory", "cannot allocate format any: %s", desc)
	}
	if eng == nil {
		return nil, status.Invalidf("memory", "nil engine")
	}
	return &Buffer{desc: desc, eng: eng, data: alloc(desc.Size())}, nil
}

// alloc returns n zeroed bytes backed by 8-byte aligned storage so the
// typed views below are valid for every element type.
func alloc(n int) []byte {
	if n == 0 {
		return []byte{}
	}
	words := make([]uint64, (n+7)/8)
	//nolint:gosec // reinterpreting aligned storage as bytes, length bounded by n
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// Desc returns the layout the buffer is bound to.
func (b *Buffer) Desc() Desc { return b.desc }

// Engine returns the engine the buffer belongs to.
func (b *Buffer) Engine() *engine.Engine { return b.eng }

// Data returns the raw bytes.
// WARNING: Direct access to underlying memory. Use with caution.
func (b *Buffer) Data() []byte { return b.data }

func (b *Buffer) check(dt DataType) {
	if b.desc.dtype != dt {
		panic(fmt.Sprintf("buffer dtype is %s, not %s", b.desc.dtype, dt))
	}
}

// Int8 interprets the data as []int8.
// Panics if the buffer's dtype is not S8.
func (b *Buffer) Int8() []int8 {
	b.check(S8)
	if len(b.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounded by the physical size
	return unsafe.Slice((*int8)(unsafe.Pointer(&b.data[0])), b.desc.elems)
}

// Uint8 interprets the data as []uint8.
// Panics if the buffer's dtype is not U8.
func (b *Buffer) Uint8() []uint8 {
	b.check(U8)
	return b.data
}

// Int32 interprets the data as []int32.
// Panics if the buffer's dtype is not S32.
func (b *Buffer) Int32() []int32 {
	b.check(S32)
	if len(b.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounded by the physical size
	return unsafe.Slice((*int32)(unsafe.Pointer(&b.data[0])), b.desc.elems)
}

// Float32 interprets the data as []float32.
// Panics if the buffer's dtype is not F32.
func (b *Buffer) Float32() []float32 {
	b.check(F32)
	if len(b.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounded by the physical size
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), b.desc.elems)
}

// Float16 interprets the data as []float16.Float16.
// Panics if the buffer's dtype is not F16.
func (b *Buffer) Float16() []float16.Float16 {
	b.check(F16)
	if len(b.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy views, bounded by the physical size
	return unsafe.Slice((*float16.Float16)(unsafe.Pointer(&b.data[0])), b.desc.elems)
}

// Load reads the element at physical offset off as float64.
func (b *Buffer) Load(off int) float64 {
	switch b.desc.dtype {
	case S8:
		return float64(int8(b.data[off]))
	case U8:
		return float64(b.data[off])
	case S32:
		return float64(b.Int32()[off])
	case F16:
		return float64(b.Float16()[off].Float32())
	case F32:
		return float64(b.Float32()[off])
	default:
		panic(fmt.Sprintf("load: unsupported dtype %s", b.desc.dtype))
	}
}

// Store writes v at physical offset off, rounding to nearest and saturating
// for integer types.
func (b *Buffer) Store(off int, v float64) {
	q := Quantize(b.desc.dtype, v)
	switch b.desc.dtype {
	case S8:
		b.data[off] = byte(int8(q))
	case U8:
		b.data[off] = uint8(q)
	case S32:
		b.Int32()[off] = int32(q)
	case F16:
		b.Float16()[off] = float16.Fromfloat32(float32(v))
	case F32:
		b.Float32()[off] = float32(v)
	default:
		panic(fmt.Sprintf("store: unsupported dtype %s", b.desc.dtype))
	}
}

// At reads the element at a logical multi-index.
func (b *Buffer) At(idx ...int) float64 {
	return b.Load(b.desc.Offset(idx))
}

// Set writes the element at a logical multi-index.
func (b *Buffer) Set(v float64, idx ...int) {
	b.Store(b.desc.Offset(idx), v)
}

// Fill stores v in every physical element, padding included.
func (b *Buffer) Fill(v float64) {
	for i := 0; i < b.desc.elems; i++ {
		b.Store(i, v)
	}
}

// Equal reports whether two buffers hold identical logical contents.
func (b *Buffer) Equal(other *Buffer) bool {
	if !b.desc.dims.Equal(other.desc.dims) || b.desc.dtype != other.desc.dtype {
		return false
	}
	n := b.desc.NumElements()
	for i := 0; i < n; i++ {
		if b.Load(b.desc.OffL(i)) != other.Load(other.desc.OffL(i)) {
			return false
		}
	}
	return true
}
