package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/prim/internal/logger"
	"github.com/born-ml/prim/internal/status"
)

type job struct {
	name string
	fn   func() error
}

// Stream is an in-order queue of work on an engine. Jobs run one at a time
// on a dedicated goroutine in submission order. Streams are independent:
// two streams on one engine may run concurrently.
type Stream struct {
	eng *Engine
	id  uuid.UUID
	log logger.Logger

	jobs chan job

	mu      sync.Mutex
	pending sync.WaitGroup
	err     error
	closed  bool
	done    chan struct{}
}

// NewStream creates a stream on eng.
func NewStream(eng *Engine) (*Stream, error) {
	if eng == nil {
		return nil, status.Invalidf("stream", "nil engine")
	}
	s := &Stream{
		eng:  eng,
		id:   uuid.New(),
		jobs: make(chan job, 64),
		done: make(chan struct{}),
	}
	s.log = eng.Logger().With("stream", s.id.String())
	go s.run()
	return s, nil
}

// Engine returns the engine the stream executes on.
func (s *Stream) Engine() *Engine { return s.eng }

// ID returns the stream identifier.
func (s *Stream) ID() uuid.UUID { return s.id }

func (s *Stream) run() {
	defer close(s.done)
	for j := range s.jobs {
		start := time.Now()
		err := s.exec(j)
		s.log.Debug("job done", "name", j.name, "duration", time.Since(start), "ok", err == nil)
		if err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
		s.pending.Done()
	}
}

// exec runs one job, converting kernel panics into runtime errors.
func (s *Stream) exec(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = status.Runtimef(j.name, "%v", r)
		}
	}()
	return j.fn()
}

// Submit enqueues fn to run after everything submitted before it.
func (s *Stream) Submit(name string, fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return status.Runtimef("stream", "submit %s on closed stream", name)
	}
	s.pending.Add(1)
	s.mu.Unlock()

	s.jobs <- job{name: name, fn: fn}
	return nil
}

// Wait blocks until all submitted work has finished and returns the first
// job error since the previous Wait.
func (s *Stream) Wait() error {
	s.pending.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Close waits for pending work and stops the stream worker. It is safe to
// call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Wait()
	close(s.jobs)
	<-s.done
	return err
}

// String returns the engine and stream id.
func (s *Stream) String() string {
	return fmt.Sprintf("%s/%s", s.eng, s.id)
}
