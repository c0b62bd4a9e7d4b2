// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dnn is the public API of the primitive library.
//
// A computation is described with memory descriptors (MemoryDesc), an
// optional attribute carrying output scales and fused post-ops (Attr), and
// a primitive descriptor that validates the request against the engine and
// resolves every operand layout. Primitives built from descriptors execute
// on a Stream with a named argument map:
//
//	eng, _ := dnn.NewEngine(dnn.CPU, 0)
//	s, _ := dnn.NewStream(eng)
//	src := dnn.MustDesc(dnn.Dims{8, 256, 13, 13}, dnn.F32, dnn.NCHW)
//	dst := dnn.MustDesc(dnn.Dims{8, 256, 13, 13}, dnn.U8, dnn.NHWC)
//	a, _ := dnn.NewAttr(dnn.WithOutputScales(0, []float32{1.8}))
//	pd, _ := dnn.NewReorderDesc(eng, src, eng, dst, a)
//	p, _ := dnn.NewPrimitive(pd)
//	_ = p.Execute(s, dnn.Args{dnn.ArgSrc: in, dnn.ArgDst: out})
//	_ = s.Wait()
//
// Descriptor constructors fail with InvalidArguments for malformed requests
// and with Unimplemented for valid ones the backend cannot run; use
// StatusOf to branch on the outcome.
package dnn
