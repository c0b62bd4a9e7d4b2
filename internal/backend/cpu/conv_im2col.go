package cpu

import (
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

// LookupConvIm2col returns the im2col kernel when every operand is f32 in a
// plain layout (nchw activations, oihw weights). It reports false otherwise
// so the caller falls back to the direct kernel.
func LookupConvIm2col(src, wei, dst memory.Desc, isa engine.ISA) (Impl[ConvKernel], bool) {
	if src.DataType() != memory.F32 || wei.DataType() != memory.F32 || dst.DataType() != memory.F32 {
		return Impl[ConvKernel]{}, false
	}
	if src.Format() != memory.NCHW || wei.Format() != memory.OIHW || dst.Format() != memory.NCHW {
		return Impl[ConvKernel]{}, false
	}
	return Impl[ConvKernel]{Name: implName("gemm_im2col", isa), Run: convIm2col}, true
}

// convIm2col computes the convolution one image at a time:
//  1. Im2col: [C, H, W] -> col [H_out*W_out, C*K_h*K_w]
//  2. MatMul: weights [C_out, C*K_h*K_w] x col^T -> [C_out, H_out*W_out]
//  3. Epilogue per element: bias, scale, post-ops
//
// Reference: "High Performance Convolutional Neural Networks for Document Processing"
// (Chellapilla et al., 2006).
func convIm2col(p problem.Conv, a ConvArgs, par parallel.Config) {
	if p.Empty() {
		return
	}
	src := a.Src.Float32()
	wei := a.Weights.Float32()
	ep := newEpilogue(a)

	colWidth := p.IC * p.KH * p.KW
	colHeight := p.OH * p.OW
	colBuf := make([]float32, colHeight*colWidth)
	imgSize := p.IC * p.IH * p.IW
	outSize := p.OC * colHeight

	for n := 0; n < p.MB; n++ {
		im2colFloat32(colBuf, src[n*imgSize:], p)

		parallel.For(p.OC, func(oc int) {
			row := wei[oc*colWidth : (oc+1)*colWidth]
			for j := 0; j < colHeight; j++ {
				col := colBuf[j*colWidth : (j+1)*colWidth]
				sum := float32(0)
				for k, w := range row {
					sum += w * col[k]
				}
				ep.store(sum, oc, n*outSize+oc*colHeight+j)
			}
		}, par)
	}
}

// im2colFloat32 transforms one image into a column matrix.
//
// Each row of colBuf corresponds to one output position; each column to one
// kernel weight. Positions that fall in the padding are zero.
func im2colFloat32(colBuf, img []float32, p problem.Conv) {
	bufIdx := 0
	for outH := 0; outH < p.OH; outH++ {
		for outW := 0; outW < p.OW; outW++ {
			hStart := outH*p.SH - p.PadT
			wStart := outW*p.SW - p.PadL

			for c := 0; c < p.IC; c++ {
				for kh := 0; kh < p.KH; kh++ {
					for kw := 0; kw < p.KW; kw++ {
						h := hStart + kh
						w := wStart + kw
						if h >= 0 && h < p.IH && w >= 0 && w < p.IW {
							colBuf[bufIdx] = img[c*p.IH*p.IW+h*p.IW+w]
						} else {
							colBuf[bufIdx] = 0
						}
						bufIdx++
					}
				}
			}
		}
	}
}
