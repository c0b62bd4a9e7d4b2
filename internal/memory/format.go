package memory

import "github.com/born-ml/prim/internal/status"

// FormatTag names the physical ordering and blocking of a tensor's axes.
//
// Logical axis order is always the canonical one (N, C, H, W for activations
// and O, I, H, W for weights); the tag only decides where each element lives.
type FormatTag int

// Memory format tags.
const (
	FormatUndef FormatTag = iota
	// Any lets the primitive descriptor pick the layout.
	Any
	X
	NC
	CN
	NCHW
	NHWC
	OIHW
	OHWI
	// NChw8c blocks channels by 8; the channel axis is padded to a multiple of 8.
	NChw8c
	NChw16c
	// Oihw8o blocks output channels by 8.
	Oihw8o
	Oihw16o
)

// layout is the physical description of a tag: outer axes in order from
// slowest to fastest, and an optional block of one axis stored innermost.
type layout struct {
	ndims    int
	order    []int
	blockDim int
	block    int
}

var layouts = map[FormatTag]layout{
	X:       {ndims: 1, order: []int{0}, blockDim: -1},
	NC:      {ndims: 2, order: []int{0, 1}, blockDim: -1},
	CN:      {ndims: 2, order: []int{1, 0}, blockDim: -1},
	NCHW:    {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: -1},
	NHWC:    {ndims: 4, order: []int{0, 2, 3, 1}, blockDim: -1},
	OIHW:    {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: -1},
	OHWI:    {ndims: 4, order: []int{0, 2, 3, 1}, blockDim: -1},
	NChw8c:  {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: 1, block: 8},
	NChw16c: {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: 1, block: 16},
	Oihw8o:  {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: 0, block: 8},
	Oihw16o: {ndims: 4, order: []int{0, 1, 2, 3}, blockDim: 0, block: 16},
}

var formatNames = map[FormatTag]string{
	FormatUndef: "undef",
	Any:         "any",
	X:           "x",
	NC:          "nc",
	CN:          "cn",
	NCHW:        "nchw",
	NHWC:        "nhwc",
	OIHW:        "oihw",
	OHWI:        "ohwi",
	NChw8c:      "nChw8c",
	NChw16c:     "nChw16c",
	Oihw8o:      "Oihw8o",
	Oihw16o:     "Oihw16o",
}

// String returns the conventional tag name.
func (f FormatTag) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// NDims returns the number of axes the tag describes, or 0 for Any and
// FormatUndef.
func (f FormatTag) NDims() int {
	return layouts[f].ndims
}

// Blocked reports whether the tag stores one axis in fixed-size inner blocks.
func (f FormatTag) Blocked() bool {
	l, ok := layouts[f]
	return ok && l.blockDim >= 0
}

// ParseFormatTag converts a tag name back to a FormatTag.
func ParseFormatTag(name string) (FormatTag, error) {
	for tag, s := range formatNames {
		if s == name && tag != FormatUndef {
			return tag, nil
		}
	}
	return FormatUndef, status.Invalidf("memory", "unknown format tag %q", name)
}

// PlainFormat returns the plain row-major tag for the given number of axes.
func PlainFormat(ndims int) FormatTag {
	switch ndims {
	case 1:
		return X
	case 2:
		return NC
	case 4:
		return NCHW
	default:
		return FormatUndef
	}
}
