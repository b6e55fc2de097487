package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ProcessingStatus of a WebhookEvent
// ---------------------------------------------------------------------------

// ProcessingStatus is the processing status of a WebhookEvent
type ProcessingStatus string

const (
	// ProcessingStatusPending indicates the event was received but not yet processed
	ProcessingStatusPending ProcessingStatus = "PENDING"
	// ProcessingStatusApplied indicates the event was applied (or was a safe no-op)
	ProcessingStatusApplied ProcessingStatus = "APPLIED"
	// ProcessingStatusFailed indicates the handler failed
	ProcessingStatusFailed ProcessingStatus = "FAILED"
	// ProcessingStatusRejected indicates the event was acknowledged but not processed
	ProcessingStatusRejected ProcessingStatus = "REJECTED"
)

// IsValid returns true if the status is valid
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case ProcessingStatusPending, ProcessingStatusApplied, ProcessingStatusFailed, ProcessingStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further transition is allowed
func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingStatusApplied || s == ProcessingStatusFailed || s == ProcessingStatusRejected
}

// String returns the string representation of ProcessingStatus
func (s ProcessingStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// WebhookEvent
// ---------------------------------------------------------------------------

// WebhookEvent is a single delivery of a marketplace notification.
// Each redelivery or replay is a new WebhookEvent; history is never revised.
type WebhookEvent struct {
	// ID is the unique identifier of this delivery
	ID uuid.UUID
	// Marketplace is the sender
	Marketplace MarketplaceCode
	// EventType is the normalized event type (may be unknown)
	EventType EventType
	// WebhookID is the sender-supplied delivery identifier (optional)
	WebhookID string
	// EventKey identifies the logical event across redeliveries
	EventKey string
	// RawPayload is the unparsed request body
	RawPayload []byte
	// ReceivedAt is when the delivery was received
	ReceivedAt time.Time
	// SignatureValid records the outcome of signature verification
	SignatureValid bool
	// Status is the processing status
	Status ProcessingStatus
	// StatusReason explains a Rejected or Failed status
	StatusReason string
	// RetryOf points to the Failed event this delivery replays (optional)
	RetryOf *uuid.UUID
	// Attempt is 1 for the first delivery and increases with each replay
	Attempt int
	// ProcessedAt is when the event reached a terminal status
	ProcessedAt *time.Time
}

// NewWebhookEvent creates a Pending WebhookEvent for a verified delivery
func NewWebhookEvent(marketplace MarketplaceCode, eventType EventType, webhookID string, raw []byte) *WebhookEvent {
	return &WebhookEvent{
		ID:             uuid.New(),
		Marketplace:    marketplace,
		EventType:      eventType,
		WebhookID:      webhookID,
		EventKey:       DeriveEventKey(webhookID, raw),
		RawPayload:     raw,
		ReceivedAt:     time.Now().UTC(),
		SignatureValid: true,
		Status:         ProcessingStatusPending,
		Attempt:        1,
	}
}

// NewRetry creates a new Pending delivery that replays a Failed event
func (e *WebhookEvent) NewRetry() *WebhookEvent {
	retry := NewWebhookEvent(e.Marketplace, e.EventType, e.WebhookID, e.RawPayload)
	retry.EventKey = e.EventKey
	retry.SignatureValid = e.SignatureValid
	original := e.ID
	if e.RetryOf != nil {
		original = *e.RetryOf
	}
	retry.RetryOf = &original
	retry.Attempt = e.Attempt + 1
	return retry
}

// DeriveEventKey returns the sender's webhook id when present, otherwise a
// digest of the raw body so identical redeliveries share a key.
func DeriveEventKey(webhookID string, raw []byte) string {
	if webhookID != "" {
		return webhookID
	}
	sum := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(sum[:16])
}

// MarkApplied transitions the event to Applied
func (e *WebhookEvent) MarkApplied(reason string) error {
	return e.finish(ProcessingStatusApplied, reason)
}

// MarkFailed transitions the event to Failed
func (e *WebhookEvent) MarkFailed(reason string) error {
	return e.finish(ProcessingStatusFailed, reason)
}

// MarkRejected transitions the event to Rejected
func (e *WebhookEvent) MarkRejected(reason string) error {
	return e.finish(ProcessingStatusRejected, reason)
}

func (e *WebhookEvent) finish(status ProcessingStatus, reason string) error {
	if e.Status.IsTerminal() {
		return ErrTerminalStatus
	}
	now := time.Now().UTC()
	e.Status = status
	e.StatusReason = reason
	e.ProcessedAt = &now
	return nil
}
