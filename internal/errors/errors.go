package errors

import (
	"errors"
	"fmt"
)

// Common application error types
var (
	// ErrDuplicateName indicates a device name is already registered
	ErrDuplicateName = errors.New("duplicate device name")

	// ErrInvalidTrigger indicates an unparsable schedule trigger
	ErrInvalidTrigger = errors.New("invalid schedule trigger")
)

// ValidationError represents construction-time configuration errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// GPIOError represents GPIO-specific errors
type GPIOError struct {
	Pin       int
	Operation string
	Err       error
}

func (e *GPIOError) Error() string {
	return fmt.Sprintf("GPIO pin %d %s failed: %v", e.Pin, e.Operation, e.Err)
}

func (e *GPIOError) Unwrap() error {
	return e.Err
}

// NewGPIOError creates a new GPIO error
func NewGPIOError(pin int, operation string, err error) *GPIOError {
	return &GPIOError{
		Pin:       pin,
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is checks if an error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
