package integration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// AnyMarketplace registers a handler for every marketplace
const AnyMarketplace integration.MarketplaceCode = "*"

// Handler applies one webhook event
type Handler interface {
	Handle(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error)

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, event *integration.WebhookEvent, data EventData) (ApplyOutcome, error) {
	return f(ctx, event, data)
}

// DispatchResult is the terminal status a dispatch leads to
type DispatchResult struct {
	Status   integration.ProcessingStatus
	Outcome  integration.LogOutcome
	Message  string
	Warnings []string // raise the notification of an applied event to warning level
	Err      error
}

type routeKey struct {
	marketplace integration.MarketplaceCode
	eventType   integration.EventType
}

// EventRouter maps (marketplace, event type) to a handler. A handler registered
// for a specific marketplace takes precedence over one registered for AnyMarketplace.
type EventRouter struct {
	mu       sync.RWMutex
	handlers map[routeKey]Handler
	logger   *zap.Logger
}

// NewEventRouter creates an empty router
func NewEventRouter(logger *zap.Logger) *EventRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRouter{
		handlers: make(map[routeKey]Handler),
		logger:   logger,
	}
}

// Register adds a handler. Validate reports bad registrations.
func (r *EventRouter) Register(marketplace integration.MarketplaceCode, eventType integration.EventType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[routeKey{marketplace: marketplace, eventType: eventType}] = handler
}

// Validate fails on nil handlers, unknown event types and invalid marketplace codes
func (r *EventRouter) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	for key, h := range r.handlers {
		route := fmt.Sprintf("%s/%s", key.marketplace, key.eventType)
		if h == nil {
			problems = append(problems, route+": nil handler")
		}
		if !key.eventType.IsValid() {
			problems = append(problems, route+": unknown event type")
		}
		if key.marketplace != AnyMarketplace && !key.marketplace.IsValid() {
			problems = append(problems, route+": invalid marketplace")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid event routes: %s", strings.Join(problems, "; "))
}

// Lookup returns the handler for an event, preferring a marketplace-specific one
func (r *EventRouter) Lookup(marketplace integration.MarketplaceCode, eventType integration.EventType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[routeKey{marketplace: marketplace, eventType: eventType}]; ok && h != nil {
		return h, true
	}
	h, ok := r.handlers[routeKey{marketplace: AnyMarketplace, eventType: eventType}]
	return h, ok && h != nil
}

// Routes returns the registered event types per marketplace key
func (r *EventRouter) Routes() map[integration.MarketplaceCode][]integration.EventType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[integration.MarketplaceCode][]integration.EventType)
	for key := range r.handlers {
		out[key.marketplace] = append(out[key.marketplace], key.eventType)
	}
	for m := range out {
		sort.Slice(out[m], func(i, j int) bool { return out[m][i] < out[m][j] })
	}
	return out
}

// Dispatch runs the handler inside its own recovery boundary and classifies the result
func (r *EventRouter) Dispatch(ctx context.Context, event *integration.WebhookEvent, data EventData) (result DispatchResult) {
	handler, ok := r.Lookup(event.Marketplace, event.EventType)
	if !ok {
		r.logger.Warn("unknown event type",
			zap.String("marketplace", string(event.Marketplace)),
			zap.String("event_type", string(event.EventType)),
			zap.String("webhook_event_id", event.ID.String()))
		return DispatchResult{
			Status:  integration.ProcessingStatusRejected,
			Outcome: integration.LogOutcomeRejected,
			Message: "unknown event type",
			Err:     integration.ErrUnknownEventType,
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				zap.String("marketplace", string(event.Marketplace)),
				zap.String("event_type", string(event.EventType)),
				zap.String("webhook_event_id", event.ID.String()),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			result = DispatchResult{
				Status:  integration.ProcessingStatusFailed,
				Outcome: integration.LogOutcomeFailed,
				Message: fmt.Sprintf("handler panic: %v", rec),
				Err:     fmt.Errorf("handler panic: %v", rec),
			}
		}
	}()

	outcome, err := handler.Handle(ctx, event, data)
	return classify(outcome, err)
}

func classify(outcome ApplyOutcome, err error) DispatchResult {
	switch {
	case err != nil && errors.Is(err, integration.ErrValidation):
		return DispatchResult{
			Status:  integration.ProcessingStatusRejected,
			Outcome: integration.LogOutcomeRejected,
			Message: err.Error(),
			Err:     err,
		}
	case err != nil && errors.Is(err, integration.ErrReconciliationConflict):
		return DispatchResult{
			Status:  integration.ProcessingStatusRejected,
			Outcome: integration.LogOutcomeConflict,
			Message: err.Error(),
			Err:     err,
		}
	case err != nil:
		return DispatchResult{
			Status:  integration.ProcessingStatusFailed,
			Outcome: integration.LogOutcomeFailed,
			Message: err.Error(),
			Err:     err,
		}
	}

	switch outcome.Kind {
	case OutcomeConflict:
		return DispatchResult{
			Status:  integration.ProcessingStatusRejected,
			Outcome: integration.LogOutcomeConflict,
			Message: outcome.Message,
		}
	case OutcomeNoop:
		return DispatchResult{
			Status:  integration.ProcessingStatusApplied,
			Outcome: integration.LogOutcomeNoop,
			Message: outcome.Message,
		}
	default:
		return DispatchResult{
			Status:   integration.ProcessingStatusApplied,
			Outcome:  integration.LogOutcomeApplied,
			Message:  outcome.Message,
			Warnings: outcome.Warnings,
		}
	}
}
