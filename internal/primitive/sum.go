package primitive

import (
	"math"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/backend/cpu"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

// SumDesc is an n-ary weighted sum dst = sum_i scales[i]*srcs[i]. Partial
// sums are clamped after every term to the accumulation range: the dst
// range for integer dsts, the f32 range otherwise.
type SumDesc struct {
	base
	scales []float32
	n      int
	run    cpu.SumKernel
}

// NewSumDesc validates a sum of srcs. A nil dst omits the output layout,
// which then follows the first source.
func NewSumDesc(eng *engine.Engine, dst *memory.Desc, scales []float32, srcs []memory.Desc) (*SumDesc, error) {
	const op = "sum"
	if err := checkEngine(op, eng); err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, status.Invalidf(op, "no sources")
	}
	if len(scales) != len(srcs) {
		return nil, status.Invalidf(op, "%d scales for %d sources", len(scales), len(srcs))
	}
	for i, s := range scales {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, status.Invalidf(op, "scale %d is not finite", i)
		}
	}

	dims := srcs[0].Dims()
	mds := make(map[Arg]memory.Desc, len(srcs)+1)
	for i, s := range srcs {
		if s.IsZero() || s.IsAny() {
			return nil, status.Invalidf(op, "source %d needs a concrete layout", i)
		}
		if !s.Dims().Equal(dims) {
			return nil, status.Invalidf(op, "source %d dims %v differ from %v", i, s.Dims(), dims)
		}
		mds[ArgMultipleSrc+Arg(i)] = s
	}

	out := srcs[0]
	if dst != nil {
		out = *dst
		if out.IsZero() {
			return nil, status.Invalidf(op, "dst has no data type")
		}
		if !out.Dims().Equal(dims) {
			return nil, status.Invalidf(op, "dst dims %v differ from %v", out.Dims(), dims)
		}
		if out.IsAny() {
			var err error
			if out, err = out.WithFormat(srcs[0].Format()); err != nil {
				return nil, err
			}
		}
	}
	mds[ArgDst] = out

	impl := cpu.LookupSum(srcs, out)
	d := &SumDesc{
		base:   base{kind: KindSum, impl: impl.Name, eng: eng, attr: attr.Default(), mds: mds},
		scales: append([]float32(nil), scales...),
		n:      len(srcs),
		run:    impl.Run,
	}
	d.logCreated()
	return d, nil
}

// NumSources returns the number of summands.
func (d *SumDesc) NumSources() int { return d.n }

// Scales returns a copy of the per-source scales.
func (d *SumDesc) Scales() []float32 { return append([]float32(nil), d.scales...) }

func (d *SumDesc) bind(args Args) (func() error, error) {
	srcs := make([]*memory.Buffer, d.n)
	for i := range srcs {
		b, err := d.buffer(args, ArgMultipleSrc+Arg(i))
		if err != nil {
			return nil, err
		}
		srcs[i] = b
	}
	dst, err := d.buffer(args, ArgDst)
	if err != nil {
		return nil, err
	}
	par := d.eng.Parallel()
	return func() error {
		d.run(srcs, d.scales, dst, par)
		return nil
	}, nil
}
