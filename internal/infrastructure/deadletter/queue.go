// Package deadletter holds webhook events whose processing failed so they can
// be replayed later. Entries are FIFO: the oldest failure is popped first.
package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeadLetter is a failed webhook event waiting for replay
type DeadLetter struct {
	WebhookEventID uuid.UUID       `json:"webhook_event_id"`
	Marketplace    string          `json:"marketplace"`
	EventType      string          `json:"event_type"`
	EventKey       string          `json:"event_key"`
	RawPayload     json.RawMessage `json:"raw_payload"`
	Error          string          `json:"error"`
	Attempts       int             `json:"attempts"`
	FailedAt       time.Time       `json:"failed_at"`
}

// Queue stores dead letters
type Queue interface {
	// Push appends a dead letter
	Push(ctx context.Context, letter DeadLetter) error
	// Pop removes and returns up to n of the oldest dead letters
	Pop(ctx context.Context, n int) ([]DeadLetter, error)
	// Len returns the number of queued dead letters
	Len(ctx context.Context) (int64, error)
	// Close releases resources held by the queue
	Close() error
}
