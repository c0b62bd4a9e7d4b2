package cpu

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
)

// EltwiseKernel computes dst = alg(src, alpha, beta) elementwise.
type EltwiseKernel func(src, dst *memory.Buffer, alg attr.Alg, alpha, beta float32, par parallel.Config)

// LookupEltwise returns the kernel for a type and algorithm. Integer types
// only support relu.
func LookupEltwise(dt memory.DataType, alg attr.Alg) (Impl[EltwiseKernel], bool) {
	switch {
	case !alg.Valid():
		return Impl[EltwiseKernel]{}, false
	case dt == memory.F32 || dt == memory.F16:
		return Impl[EltwiseKernel]{Name: "ref:" + alg.String(), Run: eltwiseFwd}, true
	case dt.IsInteger() && alg == attr.EltwiseRelu:
		return Impl[EltwiseKernel]{Name: "ref_int:relu", Run: eltwiseFwd}, true
	default:
		return Impl[EltwiseKernel]{}, false
	}
}

func eltwiseFwd(src, dst *memory.Buffer, alg attr.Alg, alpha, beta float32, par parallel.Config) {
	sd, dd := src.Desc(), dst.Desc()
	if sd.NumElements() == 0 {
		return
	}
	a, b := float64(alpha), float64(beta)
	if sd.Equal(dd) {
		parallel.For(sd.PhysicalElements(), func(off int) {
			dst.Store(off, alg.Apply(src.Load(off), a, b))
		}, par)
		return
	}
	parallel.ForND(sd.Dims(), func(idx []int) {
		dst.Store(dd.Offset(idx), alg.Apply(src.Load(sd.Offset(idx)), a, b))
	}, par)
}
