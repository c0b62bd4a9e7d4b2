package reference

import (
	"math"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

// Conv evaluates a forward convolution in float64 over logical indices and
// stores the result into dst: dst = post_ops(scale * (conv + bias)), where
// the sum post-op reads the value dst holds on entry. bias may be nil.
func Conv(p problem.Conv, src, wei, bias *memory.Buffer, a attr.Attr, dst *memory.Buffer, par parallel.Config) {
	dims := dst.Desc().Dims()
	post := a.PostOps()

	parallel.ForND(dims, func(idx []int) {
		n, oc, oh, ow := idx[0], idx[1], idx[2], idx[3]

		var acc float64
		for ic := 0; ic < p.IC; ic++ {
			for kh := 0; kh < p.KH; kh++ {
				ih := oh*p.SH - p.PadT + kh
				if ih < 0 || ih >= p.IH {
					continue
				}
				for kw := 0; kw < p.KW; kw++ {
					iw := ow*p.SW - p.PadL + kw
					if iw < 0 || iw >= p.IW {
						continue
					}
					acc += src.At(n, ic, ih, iw) * wei.At(oc, ic, kh, kw)
				}
			}
		}
		if bias != nil {
			acc += bias.At(oc)
		}
		acc *= float64(a.ScaleAt(dims, idx))

		off := dst.Desc().Offset(idx)
		acc = post.Apply(acc, dst.Load(off))
		dst.Store(off, acc)
	}, par)
}

// Eltwise evaluates an elementwise algorithm in float64.
func Eltwise(alg attr.Alg, x, alpha, beta float64) float64 {
	switch alg {
	case attr.EltwiseRelu:
		return math.Max(x, 0) + alpha*math.Min(x, 0)
	case attr.EltwiseTanh:
		e := math.Exp(2 * x)
		if math.IsInf(e, 1) {
			return 1
		}
		return (e - 1) / (e + 1)
	case attr.EltwiseElu:
		if x >= 0 {
			return x
		}
		return alpha * (math.Exp(x) - 1)
	case attr.EltwiseSquare:
		return x * x
	case attr.EltwiseAbs:
		if x < 0 {
			return -x
		}
		return x
	case attr.EltwiseSqrt:
		return math.Sqrt(x)
	case attr.EltwiseLinear:
		return alpha*x + beta
	case attr.EltwiseBoundedRelu:
		if x < 0 {
			return 0
		}
		if x > alpha {
			return alpha
		}
		return x
	case attr.EltwiseSoftRelu:
		if x > 30 {
			return x
		}
		return math.Log(1 + math.Exp(x))
	case attr.EltwiseLogistic:
		if x < 0 {
			return math.Exp(x) / (1 + math.Exp(x))
		}
		return 1 / (1 + math.Exp(-x))
	default:
		return x
	}
}
