package gisele

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks a rejected out-of-range or unknown parameter;
	// the previous state is always retained when it is returned.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvariantViolation marks an event sequence breaking the ordering or
	// pairing invariants. A materialization failing with it is discarded and
	// the previous valid one reused; it never propagates into playback.
	ErrInvariantViolation = errors.New("event ordering invariant violated")
)

// ParamError reports a parameter that was rejected, with the allowed range.
type ParamError struct {
	Kind  string
	Name  string
	Value int
	Min   int
	Max   int
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s.%s = %d, allowed range %d..%d", e.Kind, e.Name, e.Value, e.Min, e.Max)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// UnknownParamError reports a parameter name the receiving kind does not take.
type UnknownParamError struct {
	Kind string
	Name string
}

func (e *UnknownParamError) Error() string {
	return fmt.Sprintf("unknown parameter %s.%s", e.Kind, e.Name)
}

func (e *UnknownParamError) Unwrap() error { return ErrInvalidParameter }
