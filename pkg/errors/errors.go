package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNetwork    ErrorType = "NETWORK"
	ErrorTypeBackend    ErrorType = "BACKEND"
	ErrorTypeRender     ErrorType = "RENDER"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error

	// StatusCode and ProblemDetail are populated for backend errors only.
	// ProblemDetail holds the parsed JSON error body when the upstream
	// response was parseable, otherwise the raw response text.
	StatusCode    int
	ProblemDetail interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Type == ErrorTypeBackend {
		return fmt.Sprintf("%s: backend returned %d: %v", e.Type, e.StatusCode, e.ProblemDetail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNetwork creates a transport-level error (DNS, connection refused, timeout)
func NewNetwork(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewBackend creates an error for a non-success upstream response
func NewBackend(statusCode int, problemDetail interface{}) error {
	return &AppError{
		Type:          ErrorTypeBackend,
		Message:       "backend request failed",
		StatusCode:    statusCode,
		ProblemDetail: problemDetail,
	}
}

// NewRender creates an error for a graph payload that cannot be visualized
func NewRender(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeRender,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:          appErr.Type,
			Message:       fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:           appErr.Err,
			StatusCode:    appErr.StatusCode,
			ProblemDetail: appErr.ProblemDetail,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeValidation
}

// IsNetwork checks if an error is a transport-level error
func IsNetwork(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeNetwork
}

// IsBackend checks if an error is a backend response error
func IsBackend(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeBackend
}

// IsRender checks if an error is a render error
func IsRender(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeRender
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == ErrorTypeInternal
}

// AsAppError extracts the AppError from err, if there is one.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
