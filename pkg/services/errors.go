package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no session matches the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidSessionID is returned when the given ID is not a UUID.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrNotReady is returned when a result is requested before the session
	// reached a terminal state.
	ErrNotReady = errors.New("result not ready")

	// ErrUnavailable is returned when the backing store cannot be reached.
	// Handlers map it to a fixed retry-later message; the wrapped detail is
	// for logs only.
	ErrUnavailable = errors.New("backend unavailable")
)

// ValidationError wraps field-specific validation errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
