package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory defines the normalized CRM failure taxonomy.
type ErrorCategory string

const (
	// CategoryAuth indicates credential or permission issues (401/403)
	CategoryAuth ErrorCategory = "auth"

	// CategoryRateLimit indicates too many requests (429)
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryNotFound indicates the contact or resource doesn't exist (404)
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryBadRequest indicates a malformed request (400)
	CategoryBadRequest ErrorCategory = "bad_request"

	// CategoryConflict indicates the resource already exists (409)
	CategoryConflict ErrorCategory = "conflict"

	// CategoryServer indicates a CRM-side failure (5xx)
	CategoryServer ErrorCategory = "server"

	// CategoryTransport indicates the request never produced a response
	CategoryTransport ErrorCategory = "transport"

	// CategoryUnknown indicates an unclassified failure
	CategoryUnknown ErrorCategory = "unknown"
)

// Error wraps CRM failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("crm [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("crm [%s]: %s", e.Category, e.Message)
}

// Unwrap supports error unwrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized CRM error.
func NewError(category ErrorCategory, message string, underlying error) *Error {
	return &Error{Category: category, Message: message, Underlying: underlying}
}

// CategoryOf extracts the error category from an error chain.
func CategoryOf(err error) ErrorCategory {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryUnknown
}

// IsRetryable reports whether the failure is worth retrying later.
// Retries are the caller's concern; the client itself never retries.
func IsRetryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryRateLimit, CategoryServer, CategoryTransport:
		return true
	default:
		return false
	}
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return CategoryAuth
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusConflict:
		return CategoryConflict
	case status == http.StatusTooManyRequests:
		return CategoryRateLimit
	case status == http.StatusBadRequest:
		return CategoryBadRequest
	case status >= 500:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}
