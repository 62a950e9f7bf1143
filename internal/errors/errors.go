// Package errors defines structured error types for the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrInvalidColumn is returned when a filter, sort or cell references a
	// column that does not belong to the table.
	ErrInvalidColumn ErrorCode = "INVALID_COLUMN"
	// ErrUnsupportedOperator is returned when a filter operator does not apply
	// to the column's declared type.
	ErrUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"
	// ErrMalformedFilterValue is returned when a filter value is missing or
	// not a finite number where one is required.
	ErrMalformedFilterValue ErrorCode = "MALFORMED_FILTER_VALUE"
	// ErrInvalidIdentifier is returned when an identifier is not a well-formed UUID.
	ErrInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrMutationFailed is returned when a write could not be applied.
	ErrMutationFailed ErrorCode = "MUTATION_FAILED"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrUnauthorized is returned when authentication is missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrRateLimited is returned when the caller exceeded its request budget.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrPayloadTooLarge is returned when the request body exceeds the limit.
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	for k, v := range details {
		e.details[k] = v
	}
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// HasCode reports whether err, or any error it wraps, carries code.
func HasCode(err error, code ErrorCode) bool {
	var ews ErrorWithStatus
	if !errors.As(err, &ews) {
		return false
	}
	return ews.Code() == code
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// InvalidColumn creates a 400 error for a column that is not part of the table.
func InvalidColumn(columnID string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrInvalidColumn, "unknown column "+columnID).
		WithDetail("column_id", columnID)
}

// UnsupportedOperator creates a 400 error for an operator applied to the wrong column type.
func UnsupportedOperator(op, columnType string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrUnsupportedOperator,
		fmt.Sprintf("operator %s is not supported for %s columns", op, columnType)).
		WithDetail("operator", op).
		WithDetail("column_type", columnType)
}

// MalformedFilterValue creates a 400 error for an unusable filter value.
func MalformedFilterValue(columnID, reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMalformedFilterValue,
		fmt.Sprintf("malformed filter value for column %s: %s", columnID, reason)).
		WithDetail("column_id", columnID)
}

// InvalidIdentifier creates a 400 error for an identifier failing the format check.
func InvalidIdentifier(field, value string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrInvalidIdentifier, fmt.Sprintf("invalid %s: %q", field, value)).
		WithDetail("field", field)
}

// MutationFailed creates a 503 error for a write that did not apply.
func MutationFailed(err error) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, ErrMutationFailed, "mutation failed").Wrap(err)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() error {
	return NewAPIError(http.StatusUnauthorized, ErrUnauthorized, "Unauthorized")
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "request body too large").
		WithDetail("limit", limit)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "rate limit exceeded").
		WithDetail("retry_after", retryAfterSeconds)
}
