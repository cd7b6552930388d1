package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types let callers tell input problems apart from system failures
const (
	TypeNotFound            = "not_found"
	TypeInvalidTransition   = "invalid_transition"
	TypeValidation          = "validation_error"
	TypeConcurrencyConflict = "concurrency_conflict"
	TypeStorage             = "storage_error"
	TypeUnauthorized        = "unauthorized"
	TypeForbidden           = "forbidden"
	TypeBadRequest          = "bad_request"
	TypeConflict            = "conflict"
	TypeTooManyRequests     = "too_many_requests"
	TypeInternal            = "internal_error"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`

	cause error
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Type: TypeNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Type: TypeForbidden, Message: "Forbidden"}
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Type: TypeBadRequest, Message: "Bad request"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Type: TypeInternal, Message: "Internal server error"}
	ErrConflict           = &AppError{Code: http.StatusConflict, Type: TypeConflict, Message: "Resource already exists"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Invalid email or password"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Type: TypeUnauthorized, Message: "Invalid token"}
)

// ErrConcurrencyConflict is returned when a conditional update lost a race
var ErrConcurrencyConflict = &AppError{
	Code:    http.StatusConflict,
	Type:    TypeConcurrencyConflict,
	Message: "Client was modified by another request, please retry",
}

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Type:    TypeForCode(code),
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeValidation,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewFieldError is a shorthand for a validation error on a single field
func NewFieldError(field, message string) *AppError {
	return NewValidationError([]FieldError{{Field: field, Message: message}})
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: resource + " not found",
	}
}

// NewInvalidTransitionError reports a move that the pipeline graph forbids
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    TypeInvalidTransition,
		Message: fmt.Sprintf("Cannot move client from %s to %s", from, to),
	}
}

// NewStorageError wraps a persistence failure. The cause is kept for logging
// and never rendered to API clients.
func NewStorageError(op string, cause error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Type:    TypeStorage,
		Message: "Storage failure during " + op,
		cause:   cause,
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    TypeConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Type:    TypeInternal,
		Message: "Internal server error",
		cause:   err,
	}
}

// TypeForCode maps an HTTP status to the error type reported for it
func TypeForCode(code int) string {
	switch code {
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusUnauthorized:
		return TypeUnauthorized
	case http.StatusForbidden:
		return TypeForbidden
	case http.StatusConflict:
		return TypeConflict
	case http.StatusUnprocessableEntity:
		return TypeValidation
	case http.StatusTooManyRequests:
		return TypeTooManyRequests
	}
	if code >= http.StatusInternalServerError {
		return TypeInternal
	}
	return TypeBadRequest
}
