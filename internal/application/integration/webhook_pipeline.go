package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/deadletter"
	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
)

// DefaultMaxRetryAttempts bounds how often a failed event is delivered in total
const DefaultMaxRetryAttempts = 3

// SignatureVerifier authenticates a webhook request
type SignatureVerifier interface {
	VerifyRequest(marketplace integration.MarketplaceCode, body []byte, headers http.Header) error
}

// WebhookMetrics records terminal webhook outcomes
type WebhookMetrics interface {
	RecordWebhookEvent(ctx context.Context, marketplace, eventType, status string)
}

// WebhookResult summarizes one handled delivery
type WebhookResult struct {
	WebhookEventID uuid.UUID                    `json:"webhook_event_id"`
	Marketplace    integration.MarketplaceCode  `json:"marketplace"`
	EventType      integration.EventType        `json:"event_type"`
	Status         integration.ProcessingStatus `json:"status"`
	Outcome        integration.LogOutcome       `json:"outcome"`
	Message        string                       `json:"message"`
	Attempt        int                          `json:"attempt"`
}

// WebhookPipeline authenticates, parses, routes and records inbound webhooks
type WebhookPipeline struct {
	marketplaces map[integration.MarketplaceCode]config.MarketplaceConfig
	verifier     SignatureVerifier
	router       *EventRouter
	events       integration.WebhookEventRepository
	logs         integration.WebhookLogRepository
	notes        integration.NotificationRepository
	scope        TransactionScope
	deadLetters  deadletter.Queue
	metrics      WebhookMetrics
	maxAttempts  int
	logger       *zap.Logger
}

// WebhookPipelineConfig contains configuration for WebhookPipeline
type WebhookPipelineConfig struct {
	Marketplaces     map[string]config.MarketplaceConfig
	Verifier         SignatureVerifier
	Router           *EventRouter
	Events           integration.WebhookEventRepository
	Logs             integration.WebhookLogRepository
	Notifications    integration.NotificationRepository
	Scope            TransactionScope
	DeadLetters      deadletter.Queue
	Metrics          WebhookMetrics
	MaxRetryAttempts int
	Logger           *zap.Logger
}

// NewWebhookPipeline creates a new WebhookPipeline
func NewWebhookPipeline(cfg WebhookPipelineConfig) *WebhookPipeline {
	marketplaces := make(map[integration.MarketplaceCode]config.MarketplaceConfig, len(cfg.Marketplaces))
	for code, m := range cfg.Marketplaces {
		marketplaces[integration.ParseMarketplaceCode(code)] = m
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebhookPipeline{
		marketplaces: marketplaces,
		verifier:     cfg.Verifier,
		router:       cfg.Router,
		events:       cfg.Events,
		logs:         cfg.Logs,
		notes:        cfg.Notifications,
		scope:        cfg.Scope,
		deadLetters:  cfg.DeadLetters,
		metrics:      cfg.Metrics,
		maxAttempts:  cfg.MaxRetryAttempts,
		logger:       cfg.Logger,
	}
}

// Handle processes one webhook delivery. It runs to completion even if the
// caller's context is cancelled. Authentication and parse failures return an
// error and change no state; every other delivery is acknowledged.
func (p *WebhookPipeline) Handle(ctx context.Context, marketplace string, body []byte, headers http.Header) (*WebhookResult, error) {
	ctx = context.WithoutCancel(ctx)
	code := integration.ParseMarketplaceCode(marketplace)
	logger := p.logger.With(zap.String("marketplace", string(code)))

	m, ok := p.marketplaces[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrMarketplaceNotConfigured, code)
	}
	if !m.Enabled {
		return nil, fmt.Errorf("%w: %s", integration.ErrMarketplaceDisabled, code)
	}

	if err := p.verifier.VerifyRequest(code, body, headers); err != nil {
		logger.Warn("webhook signature rejected")
		p.rejectDelivery(ctx, code, "", "invalid signature")
		return nil, err
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		logger.Warn("malformed webhook payload", zap.Error(err))
		p.rejectDelivery(ctx, code, "", err.Error())
		return nil, err
	}
	eventType := integration.ParseEventType(env.EventType)
	data, err := DecodeEventData(env.Data)
	if err != nil {
		logger.Warn("malformed webhook data", zap.String("event_type", string(eventType)), zap.Error(err))
		p.rejectDelivery(ctx, code, eventType, err.Error())
		return nil, err
	}

	event := integration.NewWebhookEvent(code, eventType, env.WebhookID, body)
	return p.process(ctx, event, data)
}

// Replay re-dispatches a failed delivery as a new WebhookEvent pointing to it
func (p *WebhookPipeline) Replay(ctx context.Context, original *integration.WebhookEvent) (*WebhookResult, error) {
	ctx = context.WithoutCancel(ctx)
	env, err := ParseEnvelope(original.RawPayload)
	if err != nil {
		return nil, err
	}
	data, err := DecodeEventData(env.Data)
	if err != nil {
		return nil, err
	}
	return p.process(ctx, original.NewRetry(), data)
}

func (p *WebhookPipeline) process(ctx context.Context, event *integration.WebhookEvent, data EventData) (*WebhookResult, error) {
	start := time.Now()
	logger := p.logger.With(
		zap.String("marketplace", string(event.Marketplace)),
		zap.String("event_type", string(event.EventType)),
		zap.String("webhook_event_id", event.ID.String()),
		zap.String("event_key", event.EventKey),
		zap.Int("attempt", event.Attempt),
	)
	ctx, span := telemetry.StartSpan(ctx, "webhook.process",
		telemetry.WithAttribute(telemetry.SpanAttrMarketplace, string(event.Marketplace)),
		telemetry.WithAttribute(telemetry.SpanAttrEventType, string(event.EventType)),
		telemetry.WithAttribute(telemetry.SpanAttrWebhookEventID, event.ID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrEventKey, event.EventKey),
		telemetry.WithAttribute(telemetry.SpanAttrAttempt, event.Attempt),
	)
	defer span.End()

	if err := p.events.Create(ctx, event); err != nil {
		logger.Error("failed to persist webhook event", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist webhook event: %w", err)
	}

	result := p.router.Dispatch(ctx, event, data)
	if err := finishEvent(event, result); err != nil {
		return nil, err
	}

	log := integration.NewWebhookLog(event, result.Outcome, result.Message, time.Since(start))
	notification := notificationFor(event, result)
	err := p.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Events().Finish(ctx, event); err != nil {
			return err
		}
		if err := repos.WebhookLogs().Append(ctx, &log); err != nil {
			return err
		}
		return repos.Notifications().Append(ctx, &notification)
	})
	if err != nil {
		logger.Error("failed to record webhook outcome", zap.Error(err))
		telemetry.RecordError(span, err)
		p.recordOutcome(ctx, event, &log, &notification, logger)
	}

	if event.Status == integration.ProcessingStatusFailed {
		p.deadLetter(ctx, event, result, logger)
	}
	if p.metrics != nil {
		p.metrics.RecordWebhookEvent(ctx, string(event.Marketplace), string(event.EventType), string(event.Status))
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(event.Status),
		telemetry.SpanAttrOutcome, string(result.Outcome))
	if event.Status == integration.ProcessingStatusApplied {
		telemetry.SetOK(span)
	}

	logger.Info("webhook processed",
		zap.String("status", string(event.Status)),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", time.Since(start)))

	return &WebhookResult{
		WebhookEventID: event.ID,
		Marketplace:    event.Marketplace,
		EventType:      event.EventType,
		Status:         event.Status,
		Outcome:        result.Outcome,
		Message:        result.Message,
		Attempt:        event.Attempt,
	}, nil
}

// recordOutcome persists the outcome piecewise after the transactional write
// failed, so the event does not stay Pending and the delivery is still acknowledged.
func (p *WebhookPipeline) recordOutcome(ctx context.Context, event *integration.WebhookEvent,
	log *integration.WebhookLog, notification *integration.NotificationRecord, logger *zap.Logger,
) {
	if err := p.events.Finish(ctx, event); err != nil {
		logger.Error("failed to finish webhook event", zap.Error(err))
	}
	if p.logs != nil {
		if err := p.logs.Append(ctx, log); err != nil {
			logger.Error("failed to append webhook log", zap.Error(err))
		}
	}
	if p.notes != nil {
		if err := p.notes.Append(ctx, notification); err != nil {
			logger.Error("failed to append notification", zap.Error(err))
		}
	}
}

func finishEvent(event *integration.WebhookEvent, result DispatchResult) error {
	switch result.Status {
	case integration.ProcessingStatusApplied:
		return event.MarkApplied(result.Message)
	case integration.ProcessingStatusRejected:
		return event.MarkRejected(result.Message)
	default:
		return event.MarkFailed(result.Message)
	}
}

func (p *WebhookPipeline) deadLetter(ctx context.Context, event *integration.WebhookEvent, result DispatchResult, logger *zap.Logger) {
	if p.deadLetters == nil {
		return
	}
	if event.Attempt >= p.maxAttempts {
		logger.Error("webhook event exhausted retries", zap.String("error", result.Message))
		return
	}
	letter := deadletter.DeadLetter{
		WebhookEventID: event.ID,
		Marketplace:    string(event.Marketplace),
		EventType:      string(event.EventType),
		EventKey:       event.EventKey,
		RawPayload:     event.RawPayload,
		Error:          result.Message,
		Attempts:       event.Attempt,
		FailedAt:       time.Now().UTC(),
	}
	if err := p.deadLetters.Push(ctx, letter); err != nil {
		logger.Error("failed to enqueue dead letter", zap.Error(err))
	}
}

// rejectDelivery writes the single audit entry of a delivery that never became a WebhookEvent
func (p *WebhookPipeline) rejectDelivery(ctx context.Context, code integration.MarketplaceCode, eventType integration.EventType, message string) {
	if p.metrics != nil {
		p.metrics.RecordWebhookEvent(ctx, string(code), string(eventType), string(integration.ProcessingStatusRejected))
	}
	if p.logs == nil {
		return
	}
	log := integration.NewWebhookLog(nil, integration.LogOutcomeRejected, message, 0)
	log.Marketplace = code
	log.EventType = eventType
	if err := p.logs.Append(ctx, &log); err != nil {
		p.logger.Error("failed to log rejected delivery", zap.Error(err))
	}
}

func notificationFor(event *integration.WebhookEvent, result DispatchResult) integration.NotificationRecord {
	level := integration.NotificationSuccess
	switch {
	case result.Status == integration.ProcessingStatusFailed:
		level = integration.NotificationError
	case result.Status == integration.ProcessingStatusRejected:
		level = integration.NotificationWarning
	case len(result.Warnings) > 0:
		level = integration.NotificationWarning
	case result.Outcome == integration.LogOutcomeNoop:
		level = integration.NotificationInfo
	}
	message := result.Message
	if len(result.Warnings) > 0 {
		message += "; " + strings.Join(result.Warnings, "; ")
	}
	title := fmt.Sprintf("%s %s", event.Marketplace.DisplayName(), event.EventType)
	n := integration.NewNotification(event.Marketplace, level, title, message)
	id := event.ID
	n.WebhookEventID = &id
	return n
}

// IsAcknowledged reports whether err still warrants a 2xx response to the marketplace
func IsAcknowledged(err error) bool {
	return err == nil || errors.Is(err, integration.ErrUnknownEventType)
}
