package memory

import (
	"math"

	"github.com/x448/float16"
)

// RoundNearest rounds half to even, the default IEEE rounding mode.
func RoundNearest(v float64) float64 {
	return math.RoundToEven(v)
}

// Saturate clamps v to the representable range of dt. Float types are left
// untouched.
func Saturate(dt DataType, v float64) float64 {
	if !dt.IsInteger() {
		return v
	}
	lo, hi := dt.Range()
	return math.Max(lo, math.Min(hi, v))
}

// Quantize converts v to the value dt would store: integers are rounded to
// nearest and saturated (NaN becomes 0), f32 and f16 are rounded to their
// precision.
func Quantize(dt DataType, v float64) float64 {
	switch dt {
	case S8, U8, S32:
		if math.IsNaN(v) {
			return 0
		}
		return Saturate(dt, RoundNearest(v))
	case F16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case F32:
		return float64(float32(v))
	default:
		return v
	}
}
