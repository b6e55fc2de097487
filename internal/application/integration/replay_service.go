package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/deadletter"
	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
)

// DefaultReplayBatchSize is how many dead letters one replay run pops
const DefaultReplayBatchSize = 50

// ReplayReport summarizes one replay run
type ReplayReport struct {
	Popped   int `json:"popped"`
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
	Requeued int `json:"requeued"`
}

// ReplayService drains the dead-letter queue back through the pipeline
type ReplayService struct {
	queue    deadletter.Queue
	events   integration.WebhookEventRepository
	pipeline *WebhookPipeline
	logger   *zap.Logger
}

// NewReplayService creates a new ReplayService
func NewReplayService(queue deadletter.Queue, events integration.WebhookEventRepository, pipeline *WebhookPipeline, logger *zap.Logger) *ReplayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayService{
		queue:    queue,
		events:   events,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Pending returns the number of queued dead letters
func (s *ReplayService) Pending(ctx context.Context) (int64, error) {
	return s.queue.Len(ctx)
}

// Replay pops up to max dead letters and re-dispatches each one. A replay that
// fails again is re-queued by the pipeline until the retry budget runs out; a
// letter that cannot be replayed at all goes back on the queue as it was.
func (s *ReplayService) Replay(ctx context.Context, max int) (ReplayReport, error) {
	if max <= 0 {
		max = DefaultReplayBatchSize
	}
	var report ReplayReport

	ctx, span := telemetry.StartServiceSpan(ctx, "dead_letter", "Replay", telemetry.WithAttribute("max", max))
	defer span.End()

	letters, err := s.queue.Pop(ctx, max)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("failed to pop dead letters: %w", err)
	}
	report.Popped = len(letters)

	for _, letter := range letters {
		original, err := s.original(ctx, letter)
		if err != nil {
			s.logger.Error("failed to load dead-lettered event",
				zap.String("webhook_event_id", letter.WebhookEventID.String()),
				zap.Error(err))
			s.requeue(ctx, letter, &report)
			continue
		}

		result, err := s.pipeline.Replay(ctx, original)
		if err != nil {
			s.logger.Error("dead letter replay failed",
				zap.String("webhook_event_id", letter.WebhookEventID.String()),
				zap.Error(err))
			s.requeue(ctx, letter, &report)
			continue
		}

		switch result.Status {
		case integration.ProcessingStatusApplied:
			report.Applied++
		case integration.ProcessingStatusRejected:
			report.Rejected++
		default:
			report.Failed++
		}
	}

	telemetry.SetAttributes(span, "popped", report.Popped, "applied", report.Applied, "failed", report.Failed)
	if report.Popped > 0 {
		s.logger.Info("dead letter replay completed",
			zap.Int("popped", report.Popped),
			zap.Int("applied", report.Applied),
			zap.Int("rejected", report.Rejected),
			zap.Int("failed", report.Failed),
			zap.Int("requeued", report.Requeued))
	}
	return report, nil
}

// requeue returns a letter that could not be replayed. Attempts is left
// unchanged since the letter never reached a handler.
func (s *ReplayService) requeue(ctx context.Context, letter deadletter.DeadLetter, report *ReplayReport) {
	if err := s.queue.Push(ctx, letter); err != nil {
		s.logger.Error("failed to requeue dead letter",
			zap.String("webhook_event_id", letter.WebhookEventID.String()),
			zap.Error(err))
		return
	}
	report.Requeued++
}

// original loads the failed delivery a letter refers to. Letters whose event
// row is gone (for example after a retention purge) are rebuilt from the letter.
func (s *ReplayService) original(ctx context.Context, letter deadletter.DeadLetter) (*integration.WebhookEvent, error) {
	event, err := s.events.FindByID(ctx, letter.WebhookEventID)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, integration.ErrRecordNotFound) {
		return nil, err
	}

	rebuilt := integration.NewWebhookEvent(
		integration.ParseMarketplaceCode(letter.Marketplace),
		integration.ParseEventType(letter.EventType),
		"",
		letter.RawPayload,
	)
	rebuilt.ID = letter.WebhookEventID
	rebuilt.EventKey = letter.EventKey
	rebuilt.Attempt = letter.Attempts
	if err := rebuilt.MarkFailed(letter.Error); err != nil {
		return nil, err
	}
	return rebuilt, nil
}
