// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dnn

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

// Status is the result code of a library call.
type Status = status.Status

// Status codes.
const (
	Success          = status.Success
	OutOfMemory      = status.OutOfMemory
	InvalidArguments = status.InvalidArguments
	Unimplemented    = status.Unimplemented
	RuntimeError     = status.RuntimeError
)

// StatusOf returns the status carried by err (Success for nil).
func StatusOf(err error) Status {
	return status.Of(err)
}

// DataType is a tensor element type.
type DataType = memory.DataType

// Element types.
const (
	S8  = memory.S8
	U8  = memory.U8
	S32 = memory.S32
	F16 = memory.F16
	F32 = memory.F32
)

// FormatTag names a physical layout.
type FormatTag = memory.FormatTag

// Format tags. Any lets a primitive descriptor choose.
const (
	Any     = memory.Any
	X       = memory.X
	NC      = memory.NC
	CN      = memory.CN
	NCHW    = memory.NCHW
	NHWC    = memory.NHWC
	OIHW    = memory.OIHW
	OHWI    = memory.OHWI
	NChw8c  = memory.NChw8c
	NChw16c = memory.NChw16c
	Oihw8o  = memory.Oihw8o
	Oihw16o = memory.Oihw16o
)

// Dims are logical tensor extents.
type Dims = memory.Dims

// MemoryDesc is an immutable tensor layout descriptor.
type MemoryDesc = memory.Desc

// Memory is a buffer bound to one descriptor and one engine.
type Memory = memory.Buffer

// NewDesc builds a layout descriptor.
func NewDesc(dims Dims, dt DataType, tag FormatTag) (MemoryDesc, error) {
	return memory.NewDesc(dims, dt, tag)
}

// MustDesc is NewDesc for statically known arguments; it panics on error.
func MustDesc(dims Dims, dt DataType, tag FormatTag) MemoryDesc {
	return memory.MustDesc(dims, dt, tag)
}

// NewMemory allocates a zeroed buffer for a resolved descriptor.
func NewMemory(desc MemoryDesc, eng *Engine) (*Memory, error) {
	return memory.NewBuffer(desc, eng)
}

// EngineKind is a device kind.
type EngineKind = engine.Kind

// Engine kinds.
const (
	CPU = engine.CPU
	GPU = engine.GPU
)

// Engine is an execution device handle.
type Engine = engine.Engine

// EngineOption configures NewEngine.
type EngineOption = engine.Option

// ISA is an instruction set level used for kernel dispatch.
type ISA = engine.ISA

// Stream executes submitted primitives in order.
type Stream = engine.Stream

// NewEngine creates an engine. Only CPU engine 0 is available.
func NewEngine(kind EngineKind, index int, opts ...EngineOption) (*Engine, error) {
	return engine.New(kind, index, opts...)
}

// WithMaxISA caps the detected instruction set.
func WithMaxISA(isa ISA) EngineOption {
	return engine.WithMaxISA(isa)
}

// ParseISA converts an ISA name such as "avx2" to an ISA.
func ParseISA(name string) (ISA, error) {
	return engine.ParseISA(name)
}

// NewStream creates a stream on eng.
func NewStream(eng *Engine) (*Stream, error) {
	return engine.NewStream(eng)
}

// Attr carries output scales and post-ops.
type Attr = attr.Attr

// AttrOption configures NewAttr.
type AttrOption = attr.Option

// PostOps is an ordered chain of fused operations.
type PostOps = attr.PostOps

// Alg is an elementwise algorithm.
type Alg = attr.Alg

// Elementwise algorithms.
const (
	EltwiseRelu        = attr.EltwiseRelu
	EltwiseTanh        = attr.EltwiseTanh
	EltwiseElu         = attr.EltwiseElu
	EltwiseSquare      = attr.EltwiseSquare
	EltwiseAbs         = attr.EltwiseAbs
	EltwiseSqrt        = attr.EltwiseSqrt
	EltwiseLinear      = attr.EltwiseLinear
	EltwiseBoundedRelu = attr.EltwiseBoundedRelu
	EltwiseSoftRelu    = attr.EltwiseSoftRelu
	EltwiseLogistic    = attr.EltwiseLogistic
)

// NewAttr builds and validates an attribute.
func NewAttr(opts ...AttrOption) (Attr, error) {
	return attr.New(opts...)
}

// DefaultAttr returns the attribute with a unit scale and no post-ops.
func DefaultAttr() Attr {
	return attr.Default()
}

// WithOutputScales sets the scale vector and its broadcast mask.
func WithOutputScales(mask int, scales []float32) AttrOption {
	return attr.WithOutputScales(mask, scales)
}

// WithPostOps sets the post-op chain.
func WithPostOps(ops PostOps) AttrOption {
	return attr.WithPostOps(ops)
}
