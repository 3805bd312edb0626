package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so wrapped copies compare equal to the
// predefined values.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Error codes
const (
	CodeConflict              = "CONFLICT"
	CodeNotFound              = "NOT_FOUND"
	CodeExpired               = "EXPIRED"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeForbidden             = "FORBIDDEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeRateLimited           = "RATE_LIMITED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
)

// Predefined domain errors
var (
	// Registration errors
	ErrConflict = NewDomainError(CodeConflict, "user already exists")
	ErrNotFound = NewDomainError(CodeNotFound, "registration not found")
	ErrExpired  = NewDomainError(CodeExpired, "confirmation link has expired, please register again")

	// Authentication errors
	ErrInvalidCredentials    = NewDomainError(CodeInvalidCredentials, "invalid credentials")
	ErrInvalidOrExpiredToken = NewDomainError(CodeInvalidOrExpiredToken, "invalid or expired refresh token")
	ErrInvalidToken          = NewDomainError(CodeInvalidToken, "invalid or expired token")
	ErrForbidden             = NewDomainError(CodeForbidden, "forbidden")

	// User errors
	ErrUserNotFound = NewDomainError(CodeUserNotFound, "user not found")

	// Request errors
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "invalid input")
	ErrRateLimited  = NewDomainError(CodeRateLimited, "too many requests")

	// System errors
	ErrInternal           = NewDomainError(CodeInternal, "internal server error")
	ErrServiceUnavailable = NewDomainError(CodeServiceUnavailable, "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	case CodeInvalidInput, CodeExpired:
		return http.StatusBadRequest

	case CodeInvalidCredentials, CodeInvalidOrExpiredToken, CodeInvalidToken:
		return http.StatusUnauthorized

	case CodeForbidden:
		return http.StatusForbidden

	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound

	case CodeConflict:
		return http.StatusConflict

	case CodeRateLimited:
		return http.StatusTooManyRequests

	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage returns a message that is safe to show to clients.
// Internal errors never expose the wrapped cause.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return ErrInternal.Message
}
