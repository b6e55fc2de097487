package dto

import (
	"net/http"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"

	ErrCodeRateLimited           = "ERR_RATE_LIMITED"
	ErrCodePayloadTooLarge       = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeDownstreamUnavailable = "ERR_DOWNSTREAM_UNAVAILABLE"
	ErrCodeDownstreamTimeout     = "ERR_DOWNSTREAM_TIMEOUT"
	ErrCodeDownstreamFailed      = "ERR_DOWNSTREAM_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	ErrCodeRateLimited:           http.StatusTooManyRequests,
	ErrCodePayloadTooLarge:       http.StatusRequestEntityTooLarge,
	ErrCodeDownstreamUnavailable: http.StatusServiceUnavailable,
	ErrCodeDownstreamTimeout:     http.StatusGatewayTimeout,
	ErrCodeDownstreamFailed:      http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// kindErrorCodes maps integration error kinds to API error codes
var kindErrorCodes = map[integration.ErrorKind]string{
	integration.ErrorKindAuthentication:         ErrCodeUnauthorized,
	integration.ErrorKindValidation:             ErrCodeValidation,
	integration.ErrorKindReconciliationConflict: ErrCodeConflict,
	integration.ErrorKindCircuitOpen:            ErrCodeDownstreamUnavailable,
	integration.ErrorKindDownstreamUnavailable:  ErrCodeDownstreamUnavailable,
	integration.ErrorKindTimeout:                ErrCodeDownstreamTimeout,
	integration.ErrorKindRateLimited:            ErrCodeRateLimited,
	integration.ErrorKindRequestFailed:          ErrCodeDownstreamFailed,
	integration.ErrorKindNotConfigured:          ErrCodeNotFound,
}

// ErrorCodeForKind returns the API error code for an integration error kind
func ErrorCodeForKind(kind integration.ErrorKind) string {
	if code, ok := kindErrorCodes[kind]; ok {
		return code
	}
	return ErrCodeInternal
}

// LegacyErrorCodeMapping maps shared domain error codes to API error codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"INVALID_INPUT":    ErrCodeBadRequest,
	"UNAUTHORIZED":     ErrCodeUnauthorized,
	"FORBIDDEN":        ErrCodeForbidden,
	"VALIDATION_ERROR": ErrCodeValidation,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a shared domain error code to the API format.
// Unknown codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
