package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// EventSink stores the append-only audit trail: webhook logs, notifications
// and outbound API request logs.
type EventSink struct {
	logs          integration.WebhookLogRepository
	notifications integration.NotificationRepository
	apiLogs       integration.APIRequestLogRepository
	logger        *zap.Logger
}

// EventSinkConfig contains configuration for EventSink
type EventSinkConfig struct {
	Logs          integration.WebhookLogRepository
	Notifications integration.NotificationRepository
	APILogs       integration.APIRequestLogRepository
	Logger        *zap.Logger
}

// NewEventSink creates a new EventSink
func NewEventSink(cfg EventSinkConfig) *EventSink {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &EventSink{
		logs:          cfg.Logs,
		notifications: cfg.Notifications,
		apiLogs:       cfg.APILogs,
		logger:        cfg.Logger,
	}
}

// LogEvent appends a webhook log entry
func (s *EventSink) LogEvent(ctx context.Context, log integration.WebhookLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if log.Outcome == "" {
		return fmt.Errorf("%w: outcome is required", integration.ErrValidation)
	}
	return s.logs.Append(ctx, &log)
}

// AddNotification appends a notification
func (s *EventSink) AddNotification(ctx context.Context, n integration.NotificationRecord) error {
	switch n.Level {
	case integration.NotificationInfo, integration.NotificationSuccess,
		integration.NotificationWarning, integration.NotificationError:
	case "":
		n.Level = integration.NotificationInfo
	default:
		return fmt.Errorf("%w: invalid notification level %q", integration.ErrValidation, n.Level)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", integration.ErrValidation)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return s.notifications.Append(ctx, &n)
}

// RecordAPIRequest appends one outbound call log
func (s *EventSink) RecordAPIRequest(ctx context.Context, log *integration.APIRequestLog) error {
	if s.apiLogs == nil {
		return nil
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return s.apiLogs.Append(ctx, log)
}

// ListLogs returns webhook logs, newest first
func (s *EventSink) ListLogs(ctx context.Context, filter integration.LogFilter) ([]integration.WebhookLog, error) {
	filter.Normalize()
	return s.logs.List(ctx, filter)
}

// ListNotifications returns notifications, newest first
func (s *EventSink) ListNotifications(ctx context.Context, filter integration.LogFilter) ([]integration.NotificationRecord, error) {
	filter.Normalize()
	return s.notifications.List(ctx, filter)
}

// ListAPIRequests returns outbound call logs, newest first
func (s *EventSink) ListAPIRequests(ctx context.Context, filter integration.LogFilter) ([]integration.APIRequestLog, error) {
	filter.Normalize()
	if s.apiLogs == nil {
		return nil, nil
	}
	return s.apiLogs.List(ctx, filter)
}

// Stats counts webhook logs per event type and outcome since the given time
func (s *EventSink) Stats(ctx context.Context, marketplace integration.MarketplaceCode, since time.Time) ([]integration.EventTypeStat, error) {
	return s.logs.Stats(ctx, integration.LogFilter{Marketplace: marketplace, Since: since})
}

// PurgeResult reports how many rows a retention run deleted
type PurgeResult struct {
	WebhookLogs   int64 `json:"webhook_logs"`
	Notifications int64 `json:"notifications"`
	APIRequests   int64 `json:"api_requests"`
}

// PurgeOlderThan deletes logs and notifications created before logsBefore and
// API request logs created before apiBefore.
func (s *EventSink) PurgeOlderThan(ctx context.Context, logsBefore, apiBefore time.Time) (PurgeResult, error) {
	var result PurgeResult
	var err error

	if result.WebhookLogs, err = s.logs.DeleteBefore(ctx, logsBefore); err != nil {
		return result, fmt.Errorf("failed to purge webhook logs: %w", err)
	}
	if result.Notifications, err = s.notifications.DeleteBefore(ctx, logsBefore); err != nil {
		return result, fmt.Errorf("failed to purge notifications: %w", err)
	}
	if s.apiLogs != nil {
		if result.APIRequests, err = s.apiLogs.DeleteBefore(ctx, apiBefore); err != nil {
			return result, fmt.Errorf("failed to purge api request logs: %w", err)
		}
	}

	s.logger.Info("retention purge completed",
		zap.Int64("webhook_logs", result.WebhookLogs),
		zap.Int64("notifications", result.Notifications),
		zap.Int64("api_requests", result.APIRequests))
	return result, nil
}
