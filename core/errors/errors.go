// Package errors provides the error vocabulary shared by the room-mapper packages.
// Callers check categories with errors.Is against the sentinels; the typed errors
// carry the detail that ends up in logs and HTTP problem bodies.
package errors

import (
	"errors"
	"fmt"
)

// Re-exported from the standard library so callers need a single import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

var (
	// ErrNotFound indicates that a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that a caller supplied an unusable argument.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a rejected argument.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
