package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// WebhookLog
// ---------------------------------------------------------------------------

// LogOutcome is the result of applying one webhook delivery
type LogOutcome string

const (
	LogOutcomeApplied  LogOutcome = "applied"
	LogOutcomeNoop     LogOutcome = "noop"
	LogOutcomeConflict LogOutcome = "conflict"
	LogOutcomeRejected LogOutcome = "rejected"
	LogOutcomeFailed   LogOutcome = "failed"
)

// String returns the string representation of LogOutcome
func (o LogOutcome) String() string {
	return string(o)
}

// WebhookLog is an append-only audit entry, one per delivery
type WebhookLog struct {
	ID             uuid.UUID       `json:"id"`
	WebhookEventID *uuid.UUID      `json:"webhook_event_id,omitempty"`
	Marketplace    MarketplaceCode `json:"marketplace"`
	EventType      EventType       `json:"event_type"`
	Outcome        LogOutcome      `json:"outcome"`
	Message        string          `json:"message"`
	DurationMs     int64           `json:"duration_ms"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewWebhookLog creates a log entry for the given event
func NewWebhookLog(event *WebhookEvent, outcome LogOutcome, message string, duration time.Duration) WebhookLog {
	log := WebhookLog{
		ID:         uuid.New(),
		Outcome:    outcome,
		Message:    message,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if event != nil {
		id := event.ID
		log.WebhookEventID = &id
		log.Marketplace = event.Marketplace
		log.EventType = event.EventType
	}
	return log
}

// ---------------------------------------------------------------------------
// NotificationRecord
// ---------------------------------------------------------------------------

// NotificationLevel is the severity shown to back office users
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// NotificationRecord is an append-only user-facing notification
type NotificationRecord struct {
	ID             uuid.UUID         `json:"id"`
	Marketplace    MarketplaceCode   `json:"marketplace"`
	Level          NotificationLevel `json:"level"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	WebhookEventID *uuid.UUID        `json:"webhook_event_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewNotification creates a notification record
func NewNotification(marketplace MarketplaceCode, level NotificationLevel, title, message string) NotificationRecord {
	return NotificationRecord{
		ID:          uuid.New(),
		Marketplace: marketplace,
		Level:       level,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// APIRequestLog
// ---------------------------------------------------------------------------

// APIRequestLog is an append-only record of one outbound gateway call
type APIRequestLog struct {
	ID          uuid.UUID         `json:"id"`
	Marketplace MarketplaceCode   `json:"marketplace"`
	Endpoint    string            `json:"endpoint"`
	Params      map[string]string `json:"params,omitempty"`
	Success     bool              `json:"success"`
	StatusCode  int               `json:"status_code"`
	DurationMs  float64           `json:"duration_ms"`
	CacheHit    bool              `json:"cache_hit"`
	RateLimited bool              `json:"rate_limited"`
	CircuitOpen bool              `json:"circuit_open"`
	ErrorKind   ErrorKind         `json:"error_kind"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Query types
// ---------------------------------------------------------------------------

// LogFilter filters audit queries
type LogFilter struct {
	Marketplace MarketplaceCode
	EventType   EventType
	Since       time.Time
	Limit       int
}

// Normalize applies a default and maximum limit
func (f *LogFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// EventTypeStat aggregates webhook outcomes per event type
type EventTypeStat struct {
	Marketplace MarketplaceCode `json:"marketplace"`
	EventType   EventType       `json:"event_type"`
	Outcome     LogOutcome      `json:"outcome"`
	Count       int64           `json:"count"`
}
