package cpu

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
)

// ReorderKernel copies src into dst converting layout and type. Every
// element is multiplied by its attribute scale, passed through the
// attribute's post-ops and stored with round-to-nearest saturation.
type ReorderKernel func(src, dst *memory.Buffer, a attr.Attr, par parallel.Config)

// LookupReorder selects the reorder kernel. Identical layouts without
// scaling are a plain memory copy.
func LookupReorder(src, dst memory.Desc, a attr.Attr) Impl[ReorderKernel] {
	if src.Equal(dst) && a.IsDefault() {
		return Impl[ReorderKernel]{Name: "simple:copy", Run: reorderCopy}
	}
	if src.Format() == dst.Format() {
		return Impl[ReorderKernel]{Name: "simple:flat", Run: reorderFlat}
	}
	return Impl[ReorderKernel]{Name: "simple:any", Run: reorderAny}
}

func reorderCopy(src, dst *memory.Buffer, _ attr.Attr, _ parallel.Config) {
	copy(dst.Data(), src.Data())
}

// reorderFlat walks physical offsets directly when both sides share a
// layout and only the type or scale changes.
func reorderFlat(src, dst *memory.Buffer, a attr.Attr, par parallel.Config) {
	d := src.Desc()
	if d.NumElements() == 0 {
		return
	}
	dims := d.Dims()
	post := a.PostOps()
	scales := a.Scales()
	if a.Mask() == 0 {
		s := float64(scales[0])
		parallel.For(d.PhysicalElements(), func(off int) {
			dst.Store(off, post.Apply(s*src.Load(off), dst.Load(off)))
		}, par)
		return
	}
	parallel.ForND(dims, func(idx []int) {
		off := d.Offset(idx)
		s := float64(a.ScaleAt(dims, idx))
		dst.Store(off, post.Apply(s*src.Load(off), dst.Load(off)))
	}, par)
}

// reorderAny handles any pair of layouts through logical indices.
func reorderAny(src, dst *memory.Buffer, a attr.Attr, par parallel.Config) {
	sd, dd := src.Desc(), dst.Desc()
	if sd.NumElements() == 0 {
		return
	}
	dims := sd.Dims()
	post := a.PostOps()
	parallel.ForND(dims, func(idx []int) {
		s := float64(a.ScaleAt(dims, idx))
		doff := dd.Offset(idx)
		dst.Store(doff, post.Apply(s*src.Load(sd.Offset(idx)), dst.Load(doff)))
	}, par)
}
