package operation

import (
	"errors"
	"fmt"
)

// Sentinel errors for operation evaluation.
var (
	// ErrUnknownStrategy is returned when the strategy name is unrecognized.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrUnknownOperation is returned when an operation name is absent
	// from the strategy table.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrDivisionByZero is returned by division and modulo with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrDomain is returned when an operand is outside an operation's domain
	// (log/ln of non-positive values, sqrt of negatives, invalid factorials).
	ErrDomain = errors.New("operand outside operation domain")

	// ErrBadOperandCount is returned when Apply is called with the wrong
	// number of operands for the operation.
	ErrBadOperandCount = errors.New("wrong number of operands")

	// ErrDuplicateOperation is returned when registering a name that is
	// already present in the strategy table.
	ErrDuplicateOperation = errors.New("operation already registered")
)

// Error wraps an evaluation failure with the strategy and operation name.
type Error struct {
	Strategy Strategy
	Name     string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Strategy, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr attaches strategy/operation context to an evaluation error.
func wrapErr(s Strategy, name string, err error) error {
	return &Error{Strategy: s, Name: name, Err: err}
}
