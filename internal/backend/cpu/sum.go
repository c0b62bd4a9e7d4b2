package cpu

import (
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
)

// SumKernel computes dst = sum_i scales[i]*srcs[i].
type SumKernel func(srcs []*memory.Buffer, scales []float32, dst *memory.Buffer, par parallel.Config)

// LookupSum selects the n-ary sum kernel. All sources and the destination
// share the element type; layouts may differ.
func LookupSum(srcs []memory.Desc, dst memory.Desc) Impl[SumKernel] {
	for _, s := range srcs {
		if s.Format() != dst.Format() {
			return Impl[SumKernel]{Name: "simple:any", Run: sumAny}
		}
	}
	return Impl[SumKernel]{Name: "simple:flat", Run: sumFlat}
}

// accumulate adds scale*v to acc and clamps the partial sum to [lo, hi].
// Clamping after every term, not only at the end, is what makes narrow
// destinations observe the same saturation as the reference.
func accumulate(acc, scale, v, lo, hi float32) float32 {
	acc += scale * v
	return max(lo, min(hi, acc))
}

func sumFlat(srcs []*memory.Buffer, scales []float32, dst *memory.Buffer, par parallel.Config) {
	d := dst.Desc()
	if d.NumElements() == 0 {
		return
	}
	lo, hi := accRange(d.DataType())
	parallel.For(d.PhysicalElements(), func(off int) {
		var acc float32
		for i, s := range srcs {
			acc = accumulate(acc, scales[i], float32(s.Load(off)), lo, hi)
		}
		dst.Store(off, float64(acc))
	}, par)
}

func sumAny(srcs []*memory.Buffer, scales []float32, dst *memory.Buffer, par parallel.Config) {
	d := dst.Desc()
	if d.NumElements() == 0 {
		return
	}
	lo, hi := accRange(d.DataType())
	descs := make([]memory.Desc, len(srcs))
	for i, s := range srcs {
		descs[i] = s.Desc()
	}
	parallel.ForND(d.Dims(), func(idx []int) {
		var acc float32
		for i, s := range srcs {
			acc = accumulate(acc, scales[i], float32(s.Load(descs[i].Offset(idx))), lo, hi)
		}
		dst.Store(d.Offset(idx), float64(acc))
	}, par)
}
