package types

import (
	"errors"
	"fmt"
)

// ValidationError is returned when input is rejected locally, before any
// request reaches the server.
type ValidationError struct {
	// Field names the offending input, if known.
	Field   string
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldValidationError creates a ValidationError bound to a field.
func NewFieldValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WrapValidationError prefixes a validation failure with context.
func WrapValidationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	prefix := fmt.Sprintf(format, args...)
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Field: ve.Field, Message: fmt.Sprintf("%s: %s", prefix, ve.Message)}
	}

	return &ValidationError{Message: fmt.Sprintf("%s: %v", prefix, err)}
}
