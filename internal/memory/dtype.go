// Package memory provides tensor layout descriptors and the buffers bound to
// them.
package memory

import (
	"math"

	"github.com/born-ml/prim/internal/status"
)

// DataType is the element type of a tensor.
type DataType int

// Supported element types.
const (
	Undef DataType = iota
	S8
	U8
	S32
	F16
	F32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case S8, U8:
		return 1
	case F16:
		return 2
	case S32, F32:
		return 4
	default:
		return 0
	}
}

// String returns the short name of the data type (s8, u8, s32, f16, f32).
func (dt DataType) String() string {
	switch dt {
	case S8:
		return "s8"
	case U8:
		return "u8"
	case S32:
		return "s32"
	case F16:
		return "f16"
	case F32:
		return "f32"
	default:
		return "undef"
	}
}

// IsInteger reports whether values of the type are integers.
func (dt DataType) IsInteger() bool {
	return dt == S8 || dt == U8 || dt == S32
}

// Range returns the smallest and largest finite values representable by the
// type.
func (dt DataType) Range() (lo, hi float64) {
	switch dt {
	case S8:
		return math.MinInt8, math.MaxInt8
	case U8:
		return 0, math.MaxUint8
	case S32:
		return math.MinInt32, math.MaxInt32
	case F16:
		return -65504, 65504
	case F32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return 0, 0
	}
}

// ParseDataType converts a type name back to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "s8", "int8":
		return S8, nil
	case "u8", "uint8":
		return U8, nil
	case "s32", "int32":
		return S32, nil
	case "f16", "float16":
		return F16, nil
	case "f32", "float32":
		return F32, nil
	default:
		return Undef, status.Invalidf("memory", "unknown data type %q", name)
	}
}
