package problem

import (
	"fmt"

	"github.com/born-ml/prim/internal/status"
)

// Conv describes a forward 2-D convolution over NCHW logical axes with
// OIHW weights.
type Conv struct {
	MB, IC, IH, IW int
	OC, OH, OW     int
	KH, KW         int
	SH, SW         int
	PadT, PadL     int
	PadB, PadR     int
}

// NewConv derives a problem from src, weights and dst dims plus strides and
// paddings (height, width). It checks that the dims agree with each other.
func NewConv(src, wei, dst []int, strides, padL, padR [2]int) (Conv, error) {
	if len(src) != 4 || len(wei) != 4 || len(dst) != 4 {
		return Conv{}, status.Invalidf("convolution", "src, weights and dst must be 4-D")
	}
	c := Conv{
		MB: src[0], IC: src[1], IH: src[2], IW: src[3],
		OC: wei[0], KH: wei[2], KW: wei[3],
		OH: dst[2], OW: dst[3],
		SH: strides[0], SW: strides[1],
		PadT: padL[0], PadL: padL[1],
		PadB: padR[0], PadR: padR[1],
	}
	if c.SH <= 0 || c.SW <= 0 {
		return Conv{}, status.Invalidf("convolution", "strides must be positive, got %v", strides)
	}
	if c.PadT < 0 || c.PadL < 0 || c.PadB < 0 || c.PadR < 0 {
		return Conv{}, status.Invalidf("convolution", "negative padding")
	}
	if wei[1] != c.IC {
		return Conv{}, status.Invalidf("convolution", "weights take %d input channels, src has %d", wei[1], c.IC)
	}
	if dst[0] != c.MB || dst[1] != c.OC {
		return Conv{}, status.Invalidf("convolution", "dst %v does not match batch %d and %d output channels", dst, c.MB, c.OC)
	}
	if oh := OutDim(c.IH, c.KH, c.SH, c.PadT, c.PadB); c.IH > 0 && oh != c.OH {
		return Conv{}, status.Invalidf("convolution", "dst height %d, expected %d", c.OH, oh)
	}
	if ow := OutDim(c.IW, c.KW, c.SW, c.PadL, c.PadR); c.IW > 0 && ow != c.OW {
		return Conv{}, status.Invalidf("convolution", "dst width %d, expected %d", c.OW, ow)
	}
	return c, nil
}

// OutDim returns the output extent for an input extent, kernel, stride and
// paddings.
func OutDim(in, k, stride, padBefore, padAfter int) int {
	return (in+padBefore+padAfter-k)/stride + 1
}

// Empty reports whether the output has no elements.
func (c Conv) Empty() bool {
	return c.MB == 0 || c.OC == 0 || c.OH == 0 || c.OW == 0
}

// MACs returns the number of multiply-accumulates of a dense evaluation.
func (c Conv) MACs() int {
	return c.MB * c.OC * c.OH * c.OW * c.IC * c.KH * c.KW
}

// String formats the problem in the mbXicXihXiw... style of benchmark drivers.
func (c Conv) String() string {
	return fmt.Sprintf("mb%dic%dih%diw%doc%doh%dow%dkh%dkw%dsh%dsw%dph%dpw%d",
		c.MB, c.IC, c.IH, c.IW, c.OC, c.OH, c.OW, c.KH, c.KW, c.SH, c.SW, c.PadT, c.PadL)
}
