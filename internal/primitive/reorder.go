package primitive

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/backend/cpu"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

// ReorderDesc converts a tensor between layouts and element types. Its
// output scales requantize every element: dst = saturate(round(scale*src)).
type ReorderDesc struct {
	base
	srcEng, dstEng *engine.Engine
	run            cpu.ReorderKernel
}

// NewReorderDesc validates a reorder from src on srcEng to dst on dstEng.
// The scale mask may address any axis of src. The only accepted post-op is
// a single sum, which accumulates into the previous dst contents.
func NewReorderDesc(srcEng *engine.Engine, src memory.Desc, dstEng *engine.Engine, dst memory.Desc, a attr.Attr) (*ReorderDesc, error) {
	const op = "reorder"
	if err := checkEngine(op, srcEng); err != nil {
		return nil, err
	}
	if err := checkEngine(op, dstEng); err != nil {
		return nil, err
	}
	if src.IsZero() || dst.IsZero() {
		return nil, status.Invalidf(op, "src and dst are required")
	}
	if src.IsAny() || dst.IsAny() {
		return nil, status.Invalidf(op, "src and dst need concrete formats")
	}
	if !src.Dims().Equal(dst.Dims()) {
		return nil, status.Invalidf(op, "dims differ: %v vs %v", src.Dims(), dst.Dims())
	}
	if err := a.ValidateFor(src.Dims()); err != nil {
		return nil, err
	}
	if kinds := a.PostOps().Kinds(); len(kinds) > 1 || (len(kinds) == 1 && kinds[0] != attr.PostOpSum) {
		return nil, status.Unimplementedf(op, "post-op chain %v", kinds)
	}

	impl := cpu.LookupReorder(src, dst, a)
	d := &ReorderDesc{
		base: base{
			kind: KindReorder,
			impl: impl.Name,
			eng:  srcEng,
			attr: a,
			mds:  map[Arg]memory.Desc{ArgSrc: src, ArgDst: dst},
		},
		srcEng: srcEng,
		dstEng: dstEng,
		run:    impl.Run,
	}
	d.logCreated()
	return d, nil
}

// NewReorder is a shorthand for a reorder between two buffers.
func NewReorder(src, dst *memory.Buffer, a attr.Attr) (Primitive, error) {
	if src == nil || dst == nil {
		return nil, status.Invalidf("reorder", "nil buffer")
	}
	pd, err := NewReorderDesc(src.Engine(), src.Desc(), dst.Engine(), dst.Desc(), a)
	if err != nil {
		return nil, err
	}
	return New(pd)
}

func (d *ReorderDesc) bind(args Args) (func() error, error) {
	src, err := d.arg(args, ArgSrc, d.srcEng)
	if err != nil {
		return nil, err
	}
	dst, err := d.arg(args, ArgDst, d.dstEng)
	if err != nil {
		return nil, err
	}
	par := d.eng.Parallel()
	return func() error {
		d.run(src, dst, d.attr, par)
		return nil
	}, nil
}

// arg is base.buffer with a per-side engine.
func (d *ReorderDesc) arg(args Args, arg Arg, eng *engine.Engine) (*memory.Buffer, error) {
	buf, ok := args[arg]
	if !ok || buf == nil {
		return nil, status.Invalidf("reorder", "missing argument %s", arg)
	}
	if want := d.mds[arg]; !buf.Desc().Equal(want) {
		return nil, status.Invalidf("reorder", "argument %s is %s, expected %s", arg, buf.Desc(), want)
	}
	if buf.Engine() != eng {
		return nil, status.Invalidf("reorder", "argument %s belongs to engine %s, expected %s", arg, buf.Engine(), eng)
	}
	return buf, nil
}
