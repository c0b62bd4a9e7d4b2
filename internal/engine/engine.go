// Package engine provides the compute context: an engine handle bound to a
// device plus ordered streams that execute submitted work.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/born-ml/prim/internal/logger"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/status"
)

// Kind is the device kind an engine runs on.
type Kind int

// Engine kinds.
const (
	CPU Kind = iota
	GPU
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// Engine is an execution device handle. It is immutable and safe for
// concurrent use.
type Engine struct {
	kind  Kind
	index int
	id    uuid.UUID
	isa   ISA
	log   logger.Logger
	par   parallel.Config
}

type options struct {
	isa    *ISA
	maxISA *ISA
	log    logger.Logger
	par    *parallel.Config
}

// Option configures an Engine.
type Option func(*options)

// WithISA forces the instruction set level instead of detecting it.
func WithISA(isa ISA) Option {
	return func(o *options) { o.isa = &isa }
}

// WithMaxISA caps the detected instruction set level.
func WithMaxISA(isa ISA) Option {
	return func(o *options) { o.maxISA = &isa }
}

// WithLogger sets the logger used for dispatch and stream messages.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithParallel sets the fan-out configuration used by kernels.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) { o.par = &cfg }
}

// New creates an engine of the given kind. Only CPU engine 0 exists.
func New(kind Kind, index int, opts ...Option) (*Engine, error) {
	switch kind {
	case CPU:
	case GPU:
		return nil, status.Unimplementedf("engine", "no gpu runtime available")
	default:
		return nil, status.Invalidf("engine", "unknown engine kind %d", int(kind))
	}
	if index != 0 {
		return nil, status.Invalidf("engine", "%s engine index %d out of range (count 1)", kind, index)
	}

	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	isa := DetectISA()
	if o.isa != nil {
		isa = *o.isa
	}
	if o.maxISA != nil {
		capped, err := isa.Cap(*o.maxISA)
		if err != nil {
			return nil, err
		}
		isa = capped
	}

	par := parallel.DefaultConfig()
	if o.par != nil {
		par = *o.par
	}

	e := &Engine{
		kind:  kind,
		index: index,
		id:    uuid.New(),
		isa:   isa,
		par:   par,
	}
	e.log = o.log.With("engine", e.String())
	e.log.Debug("engine created", "isa", isa.String(), "workers", par.NumWorkers)
	return e, nil
}

// Kind returns the device kind.
func (e *Engine) Kind() Kind { return e.kind }

// Index returns the device index.
func (e *Engine) Index() int { return e.index }

// ID returns a process-unique identifier.
func (e *Engine) ID() uuid.UUID { return e.id }

// ISA returns the instruction set level kernels are selected for.
func (e *Engine) ISA() ISA { return e.isa }

// Logger returns the engine logger.
func (e *Engine) Logger() logger.Logger { return e.log }

// Parallel returns the kernel fan-out configuration.
func (e *Engine) Parallel() parallel.Config { return e.par }

// String returns "kind:index".
func (e *Engine) String() string {
	return fmt.Sprintf("%s:%d", e.kind, e.index)
}
