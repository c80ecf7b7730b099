package utils

import (
	"errors"
	"fmt"
)

// Engine error kinds. Callers match them with errors.Is; the concrete error
// usually wraps one of these with the offending metric, window or record.
var (
	// ErrInsufficientData means a window or period needs more points than are available.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingMetric means a metric name is not present on a time series.
	ErrMissingMetric = errors.New("missing metric")
	// ErrMisalignedSeries means two series share no timestamps or have mismatched lengths.
	ErrMisalignedSeries = errors.New("misaligned series")
	// ErrUndefinedRatio means a ratio denominator is legitimately zero with no safe default.
	ErrUndefinedRatio = errors.New("undefined ratio")
	// ErrInvalidParameter means the caller passed a window, period or factor outside its contract.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
