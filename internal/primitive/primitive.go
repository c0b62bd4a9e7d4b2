// Package primitive provides validated primitive descriptors and the
// executable primitives built from them.
//
// A descriptor is the single place where configuration problems surface:
// malformed shapes or types fail with InvalidArguments, valid requests the
// CPU backend cannot run fail with Unimplemented. A descriptor resolves
// every operand layout (including format Any) and picks its kernel once.
// Primitives are read-only and may be executed any number of times.
package primitive

import (
	"fmt"
	"strings"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

// Kind identifies the operation a primitive performs.
type Kind int

// Primitive kinds.
const (
	KindReorder Kind = iota
	KindSum
	KindEltwise
	KindConvolution
	KindGemm
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindReorder:
		return "reorder"
	case KindSum:
		return "sum"
	case KindEltwise:
		return "eltwise"
	case KindConvolution:
		return "convolution"
	case KindGemm:
		return "gemm"
	default:
		return "unknown"
	}
}

// Arg is an execution argument role.
type Arg int

// Argument roles. Sources of n-ary primitives use ArgMultipleSrc+i.
const (
	ArgSrc Arg = iota + 1
	ArgWeights
	ArgBias
	ArgDst
	ArgMultipleSrc Arg = 1024
)

// String returns the role name.
func (a Arg) String() string {
	switch {
	case a == ArgSrc:
		return "src"
	case a == ArgWeights:
		return "weights"
	case a == ArgBias:
		return "bias"
	case a == ArgDst:
		return "dst"
	case a >= ArgMultipleSrc:
		return fmt.Sprintf("src_%d", int(a-ArgMultipleSrc))
	default:
		return fmt.Sprintf("arg(%d)", int(a))
	}
}

// Args maps argument roles to buffers for one execution.
type Args map[Arg]*memory.Buffer

// Desc is a validated, layout-resolved primitive description.
type Desc interface {
	Kind() Kind
	// Impl names the selected kernel.
	Impl() string
	Engine() *engine.Engine
	Attr() attr.Attr
	// Query returns the resolved layout of an argument; the zero Desc if
	// the primitive does not take it.
	Query(arg Arg) memory.Desc

	// bind validates args and returns the job to enqueue.
	bind(args Args) (func() error, error)
}

// Primitive is an executable handle built from a Desc.
type Primitive interface {
	Desc() Desc
	// Execute validates args synchronously and enqueues the computation on
	// s. Completion is observed with s.Wait.
	Execute(s *engine.Stream, args Args) error
}

// New builds the primitive for a descriptor.
func New(pd Desc) (Primitive, error) {
	if pd == nil {
		return nil, status.Invalidf("primitive", "nil descriptor")
	}
	return &handle{pd: pd}, nil
}

type handle struct {
	pd Desc
}

func (h *handle) Desc() Desc { return h.pd }

func (h *handle) Execute(s *engine.Stream, args Args) error {
	op := h.pd.Kind().String()
	if s == nil {
		return status.Invalidf(op, "nil stream")
	}
	if s.Engine().Kind() != h.pd.Engine().Kind() {
		return status.Invalidf(op, "stream engine %s does not match primitive engine %s", s.Engine(), h.pd.Engine())
	}
	job, err := h.pd.bind(args)
	if err != nil {
		return err
	}
	return s.Submit(op+":"+h.pd.Impl(), job)
}

// base carries what every descriptor has in common.
type base struct {
	kind Kind
	impl string
	eng  *engine.Engine
	attr attr.Attr
	mds  map[Arg]memory.Desc
}

func (b *base) Kind() Kind             { return b.kind }
func (b *base) Impl() string           { return b.impl }
func (b *base) Engine() *engine.Engine { return b.eng }
func (b *base) Attr() attr.Attr        { return b.attr }

func (b *base) Query(arg Arg) memory.Desc {
	return b.mds[arg]
}

// logCreated reports the dispatch decision at debug level.
func (b *base) logCreated() {
	parts := make([]string, 0, len(b.mds))
	for _, arg := range []Arg{ArgSrc, ArgWeights, ArgBias, ArgDst} {
		if md, ok := b.mds[arg]; ok {
			parts = append(parts, arg.String()+"="+md.String())
		}
	}
	b.eng.Logger().Debug("primitive created",
		"kind", b.kind.String(),
		"impl", b.impl,
		"args", strings.Join(parts, " "),
	)
}

// buffer fetches a required argument and checks its layout and engine.
func (b *base) buffer(args Args, arg Arg) (*memory.Buffer, error) {
	op := b.kind.String()
	buf, ok := args[arg]
	if !ok || buf == nil {
		return nil, status.Invalidf(op, "missing argument %s", arg)
	}
	want := b.mds[arg]
	if !buf.Desc().Equal(want) {
		return nil, status.Invalidf(op, "argument %s is %s, expected %s", arg, buf.Desc(), want)
	}
	if buf.Engine() != b.eng {
		return nil, status.Invalidf(op, "argument %s belongs to engine %s, expected %s", arg, buf.Engine(), b.eng)
	}
	return buf, nil
}

func checkEngine(op string, eng *engine.Engine) error {
	if eng == nil {
		return status.Invalidf(op, "nil engine")
	}
	if eng.Kind() != engine.CPU {
		return status.Unimplementedf(op, "no %s implementation", eng.Kind())
	}
	return nil
}
