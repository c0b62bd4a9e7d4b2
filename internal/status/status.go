// Package status defines the status taxonomy reported at the primitive boundary.
//
// Every failure produced by the library carries one of four statuses so that
// callers can branch on the kind of failure instead of on error identity:
// InvalidArguments for malformed shapes, types or attributes, Unimplemented
// for valid configurations the backend cannot execute, RuntimeError for
// unexpected failures during execution and OutOfMemory for allocation
// failures.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the result code of a library call.
type Status int

// Status codes.
const (
	Success Status = iota
	OutOfMemory
	InvalidArguments
	Unimplemented
	RuntimeError
)

// String returns the canonical status name.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case OutOfMemory:
		return "out_of_memory"
	case InvalidArguments:
		return "invalid_arguments"
	case Unimplemented:
		return "unimplemented"
	case RuntimeError:
		return "runtime_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus converts a status name back to a Status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "success", "":
		return Success, nil
	case "out_of_memory":
		return OutOfMemory, nil
	case "invalid_arguments":
		return InvalidArguments, nil
	case "unimplemented":
		return Unimplemented, nil
	case "runtime_error":
		return RuntimeError, nil
	default:
		return Success, errors.Errorf("unknown status %q", name)
	}
}

// Error is an error carrying a Status.
type Error struct {
	Status Status
	Op     string // Operation that failed (e.g. "convolution", "reorder").
	Msg    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Msg)
}

// New returns an error with the given status.
func New(s Status, op, msg string) error {
	return errors.WithStack(&Error{Status: s, Op: op, Msg: msg})
}

// Invalidf returns an InvalidArguments error.
func Invalidf(op, format string, args ...any) error {
	return New(InvalidArguments, op, fmt.Sprintf(format, args...))
}

// Unimplementedf returns an Unimplemented error.
func Unimplementedf(op, format string, args ...any) error {
	return New(Unimplemented, op, fmt.Sprintf(format, args...))
}

// Runtimef returns a RuntimeError error.
func Runtimef(op, format string, args ...any) error {
	return New(RuntimeError, op, fmt.Sprintf(format, args...))
}

// Of returns the status carried by err.
// A nil error is Success; errors without a status are RuntimeError.
func Of(err error) Status {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return RuntimeError
}

// Is reports whether err carries status s.
func Is(err error, s Status) bool {
	return Of(err) == s
}
