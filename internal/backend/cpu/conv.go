package cpu

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

// ConvArgs are the operands of a forward convolution. Bias may be nil.
// Scales holds one scale, or one per output channel.
type ConvArgs struct {
	Src, Weights, Bias, Dst *memory.Buffer
	Scales                  []float32
	PostOps                 attr.PostOps
}

// ConvKernel computes dst = post_ops(scale[oc] * (conv(src, weights) + bias)).
type ConvKernel func(p problem.Conv, a ConvArgs, par parallel.Config)

// ConvTypes keys the convolution table. Bias is memory.Undef without bias.
type ConvTypes struct {
	Src, Weights, Bias, Dst memory.DataType
}

var convKernels = buildConvTable()

func buildConvTable() map[ConvTypes]ConvKernel {
	t := map[ConvTypes]ConvKernel{}
	for _, bias := range []memory.DataType{memory.Undef, memory.F32} {
		t[ConvTypes{memory.F32, memory.F32, bias, memory.F32}] = convDirect[float32, float32, float32]
	}
	for _, bias := range []memory.DataType{memory.Undef, memory.S8, memory.S32, memory.F32} {
		for _, dst := range []memory.DataType{memory.U8, memory.S8, memory.S32, memory.F32} {
			t[ConvTypes{memory.U8, memory.S8, bias, dst}] = convDirect[uint8, int8, int32]
			t[ConvTypes{memory.S8, memory.S8, bias, dst}] = convDirect[int8, int8, int32]
		}
	}
	return t
}

// LookupConv returns the direct convolution kernel for a type combination.
// Integer kernels need an ISA with int8 support.
func LookupConv(types ConvTypes, isa engine.ISA) (Impl[ConvKernel], bool) {
	k, ok := convKernels[types]
	if !ok {
		return Impl[ConvKernel]{}, false
	}
	if types.Src == memory.F32 {
		return Impl[ConvKernel]{Name: implName("direct_f32", isa), Run: k}, true
	}
	if !isa.Int8() {
		return Impl[ConvKernel]{}, false
	}
	return Impl[ConvKernel]{Name: implName("x8s8s32x", isa), Run: k}, true
}

// epilogue finishes one output element: bias, output scale, post-ops and the
// saturating store into dst.
type epilogue struct {
	bias    *memory.Buffer
	biasOff []int
	scales  []float32
	post    attr.PostOps
	dst     *memory.Buffer
}

func newEpilogue(a ConvArgs) *epilogue {
	e := &epilogue{bias: a.Bias, scales: a.Scales, post: a.PostOps, dst: a.Dst}
	if a.Bias != nil {
		e.biasOff = a.Bias.Desc().AxisOffsets(0)
	}
	return e
}

func (e *epilogue) store(acc float32, oc, off int) {
	if e.bias != nil {
		acc += float32(e.bias.Load(e.biasOff[oc]))
	}
	switch len(e.scales) {
	case 0:
	case 1:
		acc *= e.scales[0]
	default:
		acc *= e.scales[oc]
	}
	if e.post.Len() > 0 {
		acc = float32(e.post.Apply(float64(acc), e.dst.Load(off)))
	}
	e.dst.Store(off, float64(acc))
}

// convDirect is the direct algorithm over any activation and weight layout.
// Address arithmetic is hoisted into per-axis offset tables so the inner
// loop over input channels is two table reads and a multiply-add.
func convDirect[S, W element, A int32 | float32](p problem.Conv, a ConvArgs, par parallel.Config) {
	if p.Empty() {
		return
	}
	src := view[S](a.Src.Data())
	wei := view[W](a.Weights.Data())

	sd, wd, dd := a.Src.Desc(), a.Weights.Desc(), a.Dst.Desc()
	sN, sC, sH, sW := sd.AxisOffsets(0), sd.AxisOffsets(1), sd.AxisOffsets(2), sd.AxisOffsets(3)
	wO, wI, wH, wW := wd.AxisOffsets(0), wd.AxisOffsets(1), wd.AxisOffsets(2), wd.AxisOffsets(3)
	dN, dC, dH, dW := dd.AxisOffsets(0), dd.AxisOffsets(1), dd.AxisOffsets(2), dd.AxisOffsets(3)
	ep := newEpilogue(a)

	parallel.ForND([]int{p.MB, p.OC, p.OH, p.OW}, func(idx []int) {
		n, oc, oh, ow := idx[0], idx[1], idx[2], idx[3]

		var acc A
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
				sBase := sN[n] + sH[ih] + sW[iw]
				wBase := wO[oc] + wH[kh] + wW[kw]
				for ic := 0; ic < p.IC; ic++ {
					acc += A(src[sBase+sC[ic]]) * A(wei[wBase+wI[ic]])
				}
			}
		}
		ep.store(float32(acc), oc, dN[n]+dC[oc]+dH[oh]+dW[ow])
	}, par)
}
