package calc

import "errors"

// Sentinel errors for engine operations.
// Domain failures (division by zero, invalid factorials, unknown
// operations) surface unchanged from the operation package.
var (
	// ErrInvalidNumber is returned when a value cannot be parsed or a
	// computed result is NaN or non-finite.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInputRejected is returned when digit input would exceed the
	// operand length cap or is not a digit. State is unchanged.
	ErrInputRejected = errors.New("input rejected")
)
