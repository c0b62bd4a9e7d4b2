package memory

import (
	"fmt"
	"strings"

	"github.com/born-ml/prim/internal/status"
)

// MaxDims is the largest supported number of tensor axes.
const MaxDims = 12

// Dims holds the logical extents of a tensor.
type Dims []int

// Validate checks that every extent is non-negative. Zero extents are legal
// and describe an empty tensor.
func (d Dims) Validate() error {
	if len(d) > MaxDims {
		return status.Invalidf("memory", "%d dims exceed the maximum of %d", len(d), MaxDims)
	}
	for i, v := range d {
		if v < 0 {
			return status.Invalidf("memory", "negative extent %d at axis %d", v, i)
		}
	}
	return nil
}

// NumElements returns the number of logical elements.
func (d Dims) NumElements() int {
	n := 1
	for _, v := range d {
		n *= v
	}
	return n
}

// Equal reports whether two dims are identical.
func (d Dims) Equal(other Dims) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of d.
func (d Dims) Clone() Dims {
	if d == nil {
		return nil
	}
	c := make(Dims, len(d))
	copy(c, d)
	return c
}

// Desc is an immutable tensor layout descriptor: logical dims, element type
// and physical format.
type Desc struct {
	dims    Dims
	dtype   DataType
	format  FormatTag
	strides []int // per axis, in units of the outer (block) index
	lay     layout
	elems   int // physical elements including block padding
}

// NewDesc validates and builds a layout descriptor. Format Any is accepted
// and produces a descriptor that must be resolved before memory is bound.
func NewDesc(dims Dims, dt DataType, tag FormatTag) (Desc, error) {
	if err := dims.Validate(); err != nil {
		return Desc{}, err
	}
	if dt.Size() == 0 {
		return Desc{}, status.Invalidf("memory", "undefined data type")
	}
	d := Desc{dims: dims.Clone(), dtype: dt, format: tag}
	if tag == Any {
		return d, nil
	}

	lay, ok := layouts[tag]
	if !ok {
		return Desc{}, status.Invalidf("memory", "unsupported format %s", tag)
	}
	if lay.ndims != len(dims) {
		return Desc{}, status.Invalidf("memory", "format %s needs %d dims, got %d", tag, lay.ndims, len(dims))
	}
	d.lay = lay
	d.strides = make([]int, len(dims))

	stride := 1
	if lay.blockDim >= 0 {
		stride = lay.block
	}
	for i := len(lay.order) - 1; i >= 0; i-- {
		ax := lay.order[i]
		d.strides[ax] = stride
		stride *= d.outer(ax)
	}
	d.elems = stride
	if d.dims.NumElements() == 0 {
		d.elems = 0
	}
	return d, nil
}

// MustDesc is NewDesc for statically known arguments; it panics on error.
func MustDesc(dims Dims, dt DataType, tag FormatTag) Desc {
	d, err := NewDesc(dims, dt, tag)
	if err != nil {
		panic(err)
	}
	return d
}

// outer returns the number of outer positions along an axis.
func (d Desc) outer(ax int) int {
	if ax == d.lay.blockDim {
		return (d.dims[ax] + d.lay.block - 1) / d.lay.block
	}
	return d.dims[ax]
}

// Dims returns a copy of the logical dims.
func (d Desc) Dims() Dims { return d.dims.Clone() }

// Dim returns the extent of one axis.
func (d Desc) Dim(ax int) int { return d.dims[ax] }

// DataType returns the element type.
func (d Desc) DataType() DataType { return d.dtype }

// Format returns the format tag.
func (d Desc) Format() FormatTag { return d.format }

// NDims returns the number of axes.
func (d Desc) NDims() int { return len(d.dims) }

// NumElements returns the number of logical elements.
func (d Desc) NumElements() int { return d.dims.NumElements() }

// PhysicalElements returns the number of stored elements including block
// padding.
func (d Desc) PhysicalElements() int { return d.elems }

// Size returns the buffer size in bytes, including block padding.
func (d Desc) Size() int { return d.elems * d.dtype.Size() }

// IsAny reports whether the layout is still unresolved.
func (d Desc) IsAny() bool { return d.format == Any }

// IsZero reports whether d is the zero Desc (no tensor).
func (d Desc) IsZero() bool { return d.dtype == Undef }

// Offset returns the physical element offset of a logical multi-index.
func (d Desc) Offset(idx []int) int {
	off := 0
	bd := d.lay.blockDim
	for ax, i := range idx {
		if ax == bd {
			off += (i/d.lay.block)*d.strides[ax] + i%d.lay.block
			continue
		}
		off += i * d.strides[ax]
	}
	return off
}

// AxisOffsets returns the offset contribution of every index along axis ax.
// Offset(idx) equals the sum over axes of AxisOffsets(ax)[idx[ax]], which
// lets kernels hoist address arithmetic out of inner loops.
func (d Desc) AxisOffsets(ax int) []int {
	offs := make([]int, d.dims[ax])
	for i := range offs {
		if ax == d.lay.blockDim {
			offs[i] = (i/d.lay.block)*d.strides[ax] + i%d.lay.block
		} else {
			offs[i] = i * d.strides[ax]
		}
	}
	return offs
}

// OffL maps a logical row-major element index to its physical offset.
func (d Desc) OffL(logical int) int {
	var buf [MaxDims]int
	idx := buf[:len(d.dims)]
	for ax := len(d.dims) - 1; ax >= 0; ax-- {
		idx[ax] = logical % d.dims[ax]
		logical /= d.dims[ax]
	}
	return d.Offset(idx)
}

// WithFormat returns the same dims and type in another format.
func (d Desc) WithFormat(tag FormatTag) (Desc, error) {
	return NewDesc(d.dims, d.dtype, tag)
}

// WithDataType returns the same dims and format with another element type.
func (d Desc) WithDataType(dt DataType) (Desc, error) {
	return NewDesc(d.dims, dt, d.format)
}

// Equal reports whether two descriptors describe the same memory: same dims,
// type and element placement. Tags that place every element identically
// (for example nchw and nhwc with a single channel) compare equal.
func (d Desc) Equal(other Desc) bool {
	if !d.dims.Equal(other.dims) || d.dtype != other.dtype {
		return false
	}
	if d.IsAny() || other.IsAny() {
		return d.format == other.format
	}
	if d.elems != other.elems {
		return false
	}
	if d.lay.blockDim != other.lay.blockDim || d.lay.block != other.lay.block {
		return false
	}
	for ax, n := range d.dims {
		if n > 1 && d.strides[ax] != other.strides[ax] {
			return false
		}
	}
	return true
}

// String formats the descriptor as type:format:dims, e.g. "u8:nhwc:8x256x13x13".
func (d Desc) String() string {
	parts := make([]string, len(d.dims))
	for i, v := range d.dims {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s:%s:%s", d.dtype, d.format, strings.Join(parts, "x"))
}
