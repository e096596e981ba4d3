// Package apperrors defines the error kinds shared across the evolver.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal setup problems: missing credentials,
	// unresolvable transforms, malformed prompt templates.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransformExecution marks a failure inside a stage transform or an
	// external collaborator while evaluating one benchmark item.
	ErrTransformExecution = errors.New("transform execution error")
	// ErrPersistence marks a failed write of generation state.
	ErrPersistence = errors.New("persistence error")
)

// Error attaches a kind and the failing operation to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configuration wraps err as a configuration error.
func Configuration(op string, err error) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: err}
}

// Configurationf builds a configuration error from a format string.
func Configurationf(op, format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// TransformExecution wraps err as a transform execution error.
func TransformExecution(op string, err error) error {
	return &Error{Kind: ErrTransformExecution, Op: op, Err: err}
}

// Persistence wraps err as a persistence error.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
