// Package errors defines the typed error taxonomy for model endpoint calls.
// Every failure leaving the invoker carries an ErrorType that tags it as
// transient or permanent, so the retry layer can decide whether another
// attempt can possibly succeed.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes endpoint call failures for retry classification.
type ErrorType string

const (
	// ErrorTypeAuth indicates authentication failed (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeRateLimit indicates rate limit exceeded, retry with backoff (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNotFound indicates the endpoint path or model does not exist (non-retryable).
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeServer indicates an upstream 5xx failure (retryable).
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeNetwork indicates network connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeProtocol indicates a well-formed HTTP response whose body
	// does not carry usable completion content, including safety-filter
	// terminations (non-retryable).
	ErrorTypeProtocol ErrorType = "protocol"

	// ErrorTypeValidation indicates bad or missing input before any
	// network call (non-retryable).
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common invoker errors for consistent error handling.
var (
	// ErrMissingContent indicates the response contained no assistant text.
	ErrMissingContent = errors.New("response contains no completion content")

	// ErrContentFiltered indicates generation was stopped by a safety filter.
	ErrContentFiltered = errors.New("generation terminated by content filter")

	// ErrUnknownProvider indicates an unknown or unsupported provider kind.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMaxRetriesExceeded indicates maximum retry attempts exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// ProviderError captures a structured error response from a model endpoint.
// It carries the HTTP status, a body excerpt for diagnosis, and the
// classified type that drives retry decisions.
type ProviderError struct {
	Provider   string    `json:"provider"`    // Provider kind ("cloud"|"local")
	StatusCode int       `json:"status_code"` // HTTP status code, 0 for transport failures
	Message    string    `json:"message"`     // Upstream message or body excerpt
	Type       ErrorType `json:"type"`        // Classified error type
	RetryAfter int       `json:"retry_after"` // Retry-After header value in seconds
}

// Error returns the formatted provider error with status code context.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s endpoint error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s endpoint error: %s", e.Provider, e.Message)
}

// IsTransient reports whether another attempt against the same endpoint can
// possibly succeed. Auth failures, missing models, and malformed responses
// always fail identically and are never worth retrying.
func (e *ProviderError) IsTransient() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServer, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// ValidationError captures input validation failures detected before any
// network call is made.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Message string `json:"message"` // Validation message
}

// Error returns the formatted validation error with field context.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsTransient determines if an error warrants another attempt. It examines
// the structured error types first and falls back to HTTP status codes,
// defaulting to false so unknown errors never cause retry loops.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsTransient()
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return false
	}

	type statusCoder interface {
		StatusCode() int
	}
	if sc, ok := err.(statusCoder); ok {
		code := sc.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code == http.StatusGatewayTimeout ||
			code >= http.StatusInternalServerError
	}

	return false
}

// RetryAfterSeconds extracts provider retry guidance from an error, or 0 if
// none is available.
func RetryAfterSeconds(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.RetryAfter
	}
	return 0
}
