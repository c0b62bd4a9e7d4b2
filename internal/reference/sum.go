package reference

import (
	"math"

	"github.com/born-ml/prim/internal/memory"
)

// Sum returns the weighted sum of one element across sources, clamping the
// partial sum to the accumulation range of acc after every term.
// For integer acc types the range is that of the type; for float types it
// is the f32 range.
func Sum(values []float64, scales []float32, acc memory.DataType) float64 {
	lo, hi := -math.MaxFloat32, math.MaxFloat32
	if acc.IsInteger() {
		lo, hi = acc.Range()
	}
	var s float64
	for i, v := range values {
		s += float64(scales[i]) * v
		s = math.Max(lo, math.Min(hi, s))
	}
	return s
}
