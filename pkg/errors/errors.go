package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeUnavailable indicates the search backend could not produce any result
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewUnavailableError creates the caller-visible "search temporarily unavailable" error
func NewUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType carried anywhere in err's chain, or "" when none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// SearchBackendError is returned by an entity search adapter when its store query fails
type SearchBackendError struct {
	EntityType string
	Op         string
	Err        error
}

// NewSearchBackendError wraps a store failure for the given entity type
func NewSearchBackendError(entityType, op string, err error) *SearchBackendError {
	return &SearchBackendError{
		EntityType: entityType,
		Op:         op,
		Err:        err,
	}
}

// Error implements the error interface
func (e *SearchBackendError) Error() string {
	return fmt.Sprintf("search backend failure (%s, %s): %v", e.EntityType, e.Op, e.Err)
}

// Unwrap implements the unwrap interface
func (e *SearchBackendError) Unwrap() error {
	return e.Err
}

// IsSearchBackendError reports whether err is a backend failure and returns the entity type attempted
func IsSearchBackendError(err error) (string, bool) {
	var backendErr *SearchBackendError
	if errors.As(err, &backendErr) {
		return backendErr.EntityType, true
	}
	return "", false
}
