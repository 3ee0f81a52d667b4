package output

import (
	"errors"
	"fmt"
)

// RuntimeError is returned when the emitter cannot satisfy its contract.
// Nothing is retried internally; the operation that detected the failure
// returns it to its caller.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Scope names the run, step or series the operation targeted.
	Scope string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeScopeOrderingViolation indicates an artifact was emitted against
	// a scope that is not started, a step was opened outside a started run,
	// or a scope was started or ended twice.
	ErrCodeScopeOrderingViolation RuntimeErrorCode = "SCOPE_ORDERING_VIOLATION"

	// ErrCodeSerializationFailure indicates an artifact could not be encoded,
	// for example a NaN measurement value.
	ErrCodeSerializationFailure RuntimeErrorCode = "SERIALIZATION_FAILURE"

	// ErrCodeSinkFailure indicates the writer failed to write a line.
	ErrCodeSinkFailure RuntimeErrorCode = "SINK_FAILURE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Scope != "" {
		msg += fmt.Sprintf(" (scope=%s)", e.Scope)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsScopeOrderingViolation reports whether err is, or wraps, a scope ordering violation.
func IsScopeOrderingViolation(err error) bool {
	return hasCode(err, ErrCodeScopeOrderingViolation)
}

// IsSerializationFailure reports whether err is, or wraps, a serialization failure.
func IsSerializationFailure(err error) bool {
	return hasCode(err, ErrCodeSerializationFailure)
}

// IsSinkFailure reports whether err is, or wraps, a sink failure.
func IsSinkFailure(err error) bool {
	return hasCode(err, ErrCodeSinkFailure)
}

// hasCode walks the whole error tree, including multierr and errors.Join
// combinations, looking for a RuntimeError with the given code.
func hasCode(err error, code RuntimeErrorCode) bool {
	if err == nil {
		return false
	}
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if hasCode(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return hasCode(x.Unwrap(), code)
	}
	return false
}

// NewScopeOrderingViolation creates a RuntimeError for a lifecycle misuse.
func NewScopeOrderingViolation(scope, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeScopeOrderingViolation,
		Message: fmt.Sprintf(format, args...),
		Scope:   scope,
	}
}

// NewSerializationFailure creates a RuntimeError for an artifact that could not be encoded.
func NewSerializationFailure(scope string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSerializationFailure,
		Message: "artifact could not be encoded",
		Scope:   scope,
		Err:     err,
	}
}

// NewSinkFailure creates a RuntimeError wrapping a writer error.
func NewSinkFailure(scope string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeSinkFailure,
		Message: "artifact could not be written",
		Scope:   scope,
		Err:     err,
	}
}

// ScopePanic is the panic value raised when a scope body panicked and the
// automatic end artifact could not be emitted either. Value is what the body
// panicked with.
type ScopePanic struct {
	Value    any
	CloseErr error
}

func (p *ScopePanic) Error() string {
	return fmt.Sprintf("scope body panicked (%v) and close failed: %v", p.Value, p.CloseErr)
}

func (p *ScopePanic) Unwrap() error {
	return p.CloseErr
}
