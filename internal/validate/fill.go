// Package validate checks primitives against the reference engine.
//
// Every runner builds its inputs deterministically, executes the primitive
// on a fresh stream, recomputes the result with package reference and
// compares element by element. Configuration errors come back as errors;
// numeric mismatches are reported in a Result.
package validate

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/prim/internal/memory"
)

// SetValue returns the deterministic test value of element index. With
// sparsity s < 1, only one element in every group of 1/s is non-zero.
func SetValue(dt memory.DataType, index int, mean, dev, sparsity float64) float64 {
	if sparsity <= 0 {
		return 0
	}
	if sparsity < 1 {
		group := int(1 / sparsity)
		if index%group != (index/group%1637)%group {
			return 0
		}
	}
	v := mean + dev*math.Sin(float64(index%37))
	if dt.IsInteger() {
		return memory.Saturate(dt, math.Trunc(v))
	}
	return v
}

// FillDefaults returns the mean and deviation FillData uses for dt.
func FillDefaults(dt memory.DataType) (mean, dev float64) {
	switch dt {
	case memory.U8:
		return 8, 8
	case memory.S8, memory.S32:
		return 0, 10
	default:
		return 1, 0.2
	}
}

// FillData stores SetValue with the default parameters into the first n
// physical elements of b.
func FillData(b *memory.Buffer, n int) {
	mean, dev := FillDefaults(b.Desc().DataType())
	FillDataWith(b, n, mean, dev)
}

// FillDataWith is FillData with explicit mean and deviation.
func FillDataWith(b *memory.Buffer, n int, mean, dev float64) {
	dt := b.Desc().DataType()
	for i := 0; i < n; i++ {
		b.Store(i, SetValue(dt, i, mean, dev, 1))
	}
}

// element is the set of storage types the runners handle generically.
type element interface {
	int8 | uint8 | int32 | float32 | float16.Float16
}

// cast converts a test value to a storage element, saturating integers.
func cast[T element](v float64) T {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(memory.Quantize(memory.S8, v))
	case *uint8:
		*p = uint8(memory.Quantize(memory.U8, v))
	case *int32:
		*p = int32(memory.Quantize(memory.S32, v))
	case *float32:
		*p = float32(v)
	case *float16.Float16:
		*p = float16.Fromfloat32(float32(v))
	}
	return out
}

// truncateMantissa keeps the leading digits of every float element of b so
// that small weighted sums are exact in the element type.
func truncateMantissa(b *memory.Buffer, digits int) {
	switch b.Desc().DataType() {
	case memory.F32:
		mask := ^uint32(0) << (24 - digits)
		data := b.Float32()
		for i, v := range data {
			data[i] = math.Float32frombits(math.Float32bits(v) & mask)
		}
	case memory.F16:
		mask := ^uint16(0) << (11 - digits)
		data := b.Float16()
		for i, v := range data {
			data[i] = float16.Frombits(v.Bits() & mask)
		}
	}
}
