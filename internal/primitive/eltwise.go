package primitive

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/backend/cpu"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

// EltwiseDesc applies one activation elementwise. Dst has the src layout.
type EltwiseDesc struct {
	base
	alg         attr.Alg
	alpha, beta float32
	run         cpu.EltwiseKernel
}

// NewEltwiseDesc validates a forward elementwise operation. Integer data
// supports relu only.
func NewEltwiseDesc(eng *engine.Engine, alg attr.Alg, src memory.Desc, alpha, beta float32) (*EltwiseDesc, error) {
	const op = "eltwise"
	if err := checkEngine(op, eng); err != nil {
		return nil, err
	}
	if !alg.Valid() {
		return nil, status.Invalidf(op, "unknown algorithm %d", int(alg))
	}
	if src.IsZero() || src.IsAny() {
		return nil, status.Invalidf(op, "src needs a concrete layout")
	}
	impl, ok := cpu.LookupEltwise(src.DataType(), alg)
	if !ok {
		return nil, status.Unimplementedf(op, "%s on %s", alg, src.DataType())
	}
	d := &EltwiseDesc{
		base: base{
			kind: KindEltwise,
			impl: impl.Name,
			eng:  eng,
			attr: attr.Default(),
			mds:  map[Arg]memory.Desc{ArgSrc: src, ArgDst: src},
		},
		alg:   alg,
		alpha: alpha,
		beta:  beta,
		run:   impl.Run,
	}
	d.logCreated()
	return d, nil
}

// Alg returns the activation.
func (d *EltwiseDesc) Alg() attr.Alg { return d.alg }

func (d *EltwiseDesc) bind(args Args) (func() error, error) {
	src, err := d.buffer(args, ArgSrc)
	if err != nil {
		return nil, err
	}
	dst, err := d.buffer(args, ArgDst)
	if err != nil {
		return nil, err
	}
	par := d.eng.Parallel()
	return func() error {
		d.run(src, dst, d.alg, d.alpha, d.beta, par)
		return nil
	}, nil
}
