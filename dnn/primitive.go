// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dnn

import (
	"github.com/born-ml/prim/internal/primitive"
)

// Arg is an execution argument role.
type Arg = primitive.Arg

// Argument roles. The i-th source of a sum is ArgMultipleSrc+i.
const (
	ArgSrc         = primitive.ArgSrc
	ArgWeights     = primitive.ArgWeights
	ArgBias        = primitive.ArgBias
	ArgDst         = primitive.ArgDst
	ArgMultipleSrc = primitive.ArgMultipleSrc
)

// Args maps roles to memory for one execution.
type Args = primitive.Args

// PrimitiveDesc is a validated, layout-resolved primitive description.
type PrimitiveDesc = primitive.Desc

// Primitive is an executable handle.
type Primitive = primitive.Primitive

// Descriptor types.
type (
	ReorderDesc = primitive.ReorderDesc
	SumDesc     = primitive.SumDesc
	EltwiseDesc = primitive.EltwiseDesc
	ConvDesc    = primitive.ConvDesc
	ConvConfig  = primitive.ConvConfig
	GemmDesc    = primitive.GemmDesc
	GemmConfig  = primitive.GemmConfig
)

// NewPrimitive builds the primitive for a descriptor.
func NewPrimitive(pd PrimitiveDesc) (Primitive, error) {
	return primitive.New(pd)
}

// NewReorderDesc describes a layout and type conversion, scaled by a.
func NewReorderDesc(srcEng *Engine, src MemoryDesc, dstEng *Engine, dst MemoryDesc, a Attr) (*ReorderDesc, error) {
	return primitive.NewReorderDesc(srcEng, src, dstEng, dst, a)
}

// NewReorder builds a reorder between two existing buffers.
func NewReorder(src, dst *Memory, a Attr) (Primitive, error) {
	return primitive.NewReorder(src, dst, a)
}

// NewSumDesc describes dst = sum of scales[i]*srcs[i]. A nil dst lets the
// primitive use the first source layout.
func NewSumDesc(eng *Engine, dst *MemoryDesc, scales []float32, srcs []MemoryDesc) (*SumDesc, error) {
	return primitive.NewSumDesc(eng, dst, scales, srcs)
}

// NewEltwiseDesc describes a forward elementwise operation.
func NewEltwiseDesc(eng *Engine, alg Alg, src MemoryDesc, alpha, beta float32) (*EltwiseDesc, error) {
	return primitive.NewEltwiseDesc(eng, alg, src, alpha, beta)
}

// NewConvDesc describes a forward inference convolution.
func NewConvDesc(eng *Engine, cfg ConvConfig, a Attr) (*ConvDesc, error) {
	return primitive.NewConvDesc(eng, cfg, a)
}

// NewGemmDesc describes a column-major GEMM.
func NewGemmDesc(eng *Engine, cfg GemmConfig) (*GemmDesc, error) {
	return primitive.NewGemmDesc(eng, cfg)
}
