package errors

import (
	"net/http"
	"strings"
)

// Classify determines the ErrorType for an HTTP status and optional upstream
// error code string. Provider error codes take precedence over the status
// because some gateways tunnel rate limit and auth failures through generic
// statuses.
func Classify(statusCode int, errorCode string) ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "rate") || strings.Contains(lowerCode, "limit"):
		return ErrorTypeRateLimit
	case strings.Contains(lowerCode, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(lowerCode, "auth") || strings.Contains(lowerCode, "unauthorized") || strings.Contains(lowerCode, "key"):
		return ErrorTypeAuth
	case strings.Contains(lowerCode, "not_found") || strings.Contains(lowerCode, "model_not_found"):
		return ErrorTypeNotFound
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuth
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case http.StatusBadRequest:
		return ErrorTypeValidation
	default:
		if statusCode >= http.StatusInternalServerError {
			return ErrorTypeServer
		}
		return ErrorTypeUnknown
	}
}
