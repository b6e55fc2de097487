package integration

import (
	"context"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrAuthentication is returned when a webhook signature is missing or wrong
	ErrAuthentication = errors.New("integration: authentication failed")
	// ErrValidation is returned for malformed payloads and unknown event types
	ErrValidation = errors.New("integration: validation failed")
	// ErrReconciliationConflict is returned for out-of-order or regressive state transitions
	ErrReconciliationConflict = errors.New("integration: reconciliation conflict")
	// ErrDownstreamUnavailable is returned when a marketplace API cannot be reached
	ErrDownstreamUnavailable = errors.New("integration: downstream unavailable")
	// ErrRateLimited is returned when an outbound call exceeds the marketplace quota
	ErrRateLimited = errors.New("integration: rate limited")
)

var (
	// Webhook errors
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrAuthentication)
	ErrMalformedPayload = fmt.Errorf("%w: malformed payload", ErrValidation)
	ErrUnknownEventType = fmt.Errorf("%w: unknown event type", ErrValidation)
	ErrTerminalStatus   = errors.New("integration: webhook event already in terminal status")

	// Reconciliation errors
	ErrInvalidTransition = fmt.Errorf("%w: invalid order status transition", ErrReconciliationConflict)
	ErrOrderNotFound     = fmt.Errorf("%w: order not found", ErrReconciliationConflict)
	ErrStaleVersion      = fmt.Errorf("%w: record modified concurrently", ErrReconciliationConflict)

	// Outbound errors
	ErrCircuitOpen      = fmt.Errorf("%w: circuit open", ErrDownstreamUnavailable)
	ErrTimeout          = fmt.Errorf("%w: request timed out", ErrDownstreamUnavailable)
	ErrRequestFailed    = errors.New("integration: marketplace request failed")
	ErrInvalidResponse  = errors.New("integration: invalid marketplace response")
	ErrRemoteAuthFailed = errors.New("integration: marketplace rejected credentials")

	// Configuration errors
	ErrMarketplaceNotConfigured = errors.New("integration: marketplace not configured")
	ErrMarketplaceDisabled      = errors.New("integration: marketplace disabled")
	ErrAdapterNotRegistered     = errors.New("integration: no adapter registered for marketplace")
	ErrUnsupportedOperation     = errors.New("integration: unsupported marketplace operation")

	// Record errors
	ErrRecordNotFound = errors.New("integration: record not found")
)

// ---------------------------------------------------------------------------
// ErrorKind classifies errors for envelopes, logs and HTTP responses
// ---------------------------------------------------------------------------

// ErrorKind is a stable, client-safe classification of an error
type ErrorKind string

const (
	ErrorKindNone                   ErrorKind = ""
	ErrorKindAuthentication         ErrorKind = "authentication"
	ErrorKindValidation             ErrorKind = "validation"
	ErrorKindReconciliationConflict ErrorKind = "reconciliation_conflict"
	ErrorKindCircuitOpen            ErrorKind = "circuit_open"
	ErrorKindTimeout                ErrorKind = "timeout"
	ErrorKindDownstreamUnavailable  ErrorKind = "downstream_unavailable"
	ErrorKindRateLimited            ErrorKind = "rate_limited"
	ErrorKindRequestFailed          ErrorKind = "request_failed"
	ErrorKindNotConfigured          ErrorKind = "not_configured"
	ErrorKindInternal               ErrorKind = "internal"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// KindOf classifies err. The more specific kinds are checked first.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrCircuitOpen):
		return ErrorKindCircuitOpen
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimited
	case errors.Is(err, ErrDownstreamUnavailable):
		return ErrorKindDownstreamUnavailable
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrRemoteAuthFailed):
		return ErrorKindAuthentication
	case errors.Is(err, ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, ErrReconciliationConflict):
		return ErrorKindReconciliationConflict
	case errors.Is(err, ErrRequestFailed), errors.Is(err, ErrInvalidResponse):
		return ErrorKindRequestFailed
	case errors.Is(err, ErrMarketplaceNotConfigured), errors.Is(err, ErrMarketplaceDisabled),
		errors.Is(err, ErrAdapterNotRegistered), errors.Is(err, ErrUnsupportedOperation):
		return ErrorKindNotConfigured
	default:
		return ErrorKindInternal
	}
}

// PublicMessage returns a message that is safe to show to API clients.
// Downstream error text is never included.
func (k ErrorKind) PublicMessage() string {
	switch k {
	case ErrorKindNone:
		return "Success"
	case ErrorKindAuthentication:
		return "Marketplace authentication failed"
	case ErrorKindValidation:
		return "Invalid request"
	case ErrorKindReconciliationConflict:
		return "Request conflicts with current state"
	case ErrorKindCircuitOpen:
		return "Marketplace temporarily unavailable (circuit open)"
	case ErrorKindTimeout:
		return "Marketplace request timed out"
	case ErrorKindDownstreamUnavailable:
		return "Marketplace temporarily unavailable"
	case ErrorKindRateLimited:
		return "Marketplace rate limit exceeded"
	case ErrorKindRequestFailed:
		return "Marketplace request failed"
	case ErrorKindNotConfigured:
		return "Marketplace not configured"
	default:
		return "Internal error"
	}
}

// HTTPStatus returns the status code used in envelopes for this kind
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrorKindNone:
		return 200
	case ErrorKindAuthentication:
		return 401
	case ErrorKindValidation:
		return 400
	case ErrorKindReconciliationConflict:
		return 409
	case ErrorKindRateLimited:
		return 429
	case ErrorKindCircuitOpen, ErrorKindDownstreamUnavailable:
		return 503
	case ErrorKindTimeout:
		return 504
	case ErrorKindRequestFailed:
		return 502
	case ErrorKindNotConfigured:
		return 404
	default:
		return 500
	}
}
