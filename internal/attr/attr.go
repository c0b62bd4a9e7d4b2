// Package attr provides primitive attributes: output scales with a broadcast
// mask and an ordered chain of fused post-operations.
package attr

import (
	"math"

	"github.com/born-ml/prim/internal/status"
)

// Attr is an immutable primitive attribute.
type Attr struct {
	mask    int
	scales  []float32
	postOps PostOps
}

// Option configures an Attr under construction.
type Option func(*Attr)

// WithOutputScales sets the scale vector and its broadcast mask. Mask 0
// means one scale for every element; bit k selects a scale per index of
// axis k.
func WithOutputScales(mask int, scales []float32) Option {
	return func(a *Attr) {
		a.mask = mask
		a.scales = append([]float32(nil), scales...)
	}
}

// WithPostOps sets the post-operation chain.
func WithPostOps(ops PostOps) Option {
	return func(a *Attr) { a.postOps = ops.clone() }
}

// Default returns the attribute with a single unit scale and no post-ops.
func Default() Attr {
	return Attr{scales: []float32{1}}
}

// New builds and validates an attribute.
func New(opts ...Option) (Attr, error) {
	a := Default()
	for _, opt := range opts {
		opt(&a)
	}
	if a.mask < 0 {
		return Attr{}, status.Invalidf("attr", "negative scale mask %d", a.mask)
	}
	if len(a.scales) == 0 {
		return Attr{}, status.Invalidf("attr", "empty output scales with mask %d", a.mask)
	}
	if a.mask == 0 && len(a.scales) != 1 {
		return Attr{}, status.Invalidf("attr", "mask 0 takes one scale, got %d", len(a.scales))
	}
	for i, s := range a.scales {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return Attr{}, status.Invalidf("attr", "scale %d is not finite", i)
		}
	}
	for i := 0; i < a.postOps.Len(); i++ {
		op := a.postOps.At(i)
		if op.Kind == PostOpEltwise && !op.Alg.Valid() {
			return Attr{}, status.Invalidf("attr", "post-op %d has unknown algorithm %d", i, int(op.Alg))
		}
	}
	return a, nil
}

// Mask returns the scale broadcast mask.
func (a Attr) Mask() int { return a.mask }

// Scales returns a copy of the scale vector.
func (a Attr) Scales() []float32 {
	if len(a.scales) == 0 {
		return []float32{1}
	}
	return append([]float32(nil), a.scales...)
}

// PostOps returns the post-operation chain.
func (a Attr) PostOps() PostOps { return a.postOps.clone() }

// IsDefault reports whether the attribute does nothing.
func (a Attr) IsDefault() bool {
	return a.mask == 0 && (len(a.scales) == 0 || a.scales[0] == 1) && a.postOps.Len() == 0
}

// ValidateFor checks the scale mask and count against the dims of the tensor
// the scales apply to.
func (a Attr) ValidateFor(dims []int) error {
	if a.mask>>len(dims) != 0 {
		return status.Invalidf("attr", "scale mask %#b addresses axes beyond %d dims", a.mask, len(dims))
	}
	want := 1
	for ax, n := range dims {
		if a.mask&(1<<ax) != 0 {
			want *= n
		}
	}
	if got := len(a.Scales()); got != want {
		return status.Invalidf("attr", "scale mask %#b needs %d scales, got %d", a.mask, want, got)
	}
	return nil
}

// ScaleIndex returns the position in the scale vector used by the element at
// idx. Masked axes are flattened in row-major order.
func (a Attr) ScaleIndex(dims, idx []int) int {
	if a.mask == 0 {
		return 0
	}
	s := 0
	for ax, n := range dims {
		if a.mask&(1<<ax) != 0 {
			s = s*n + idx[ax]
		}
	}
	return s
}

// ScaleAt returns the scale applied to the element at idx.
func (a Attr) ScaleAt(dims, idx []int) float32 {
	if len(a.scales) == 0 {
		return 1
	}
	return a.scales[a.ScaleIndex(dims, idx)]
}
