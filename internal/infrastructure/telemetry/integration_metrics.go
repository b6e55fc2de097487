// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// IntegrationMetrics records gateway and webhook metrics.
// A nil *IntegrationMetrics is valid and records nothing.
type IntegrationMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Outbound gateway
	gatewayRequestsTotal   *Counter
	gatewayRequestDuration *Histogram
	gatewayCacheHitsTotal  *Counter
	gatewayCircuitOpen     *Counter
	gatewayRateLimited     *Counter

	// Inbound webhooks
	webhookEventsTotal *Counter

	// Gauges
	deadLetterDepth *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	depthProvider DeadLetterDepthProvider
}

// DeadLetterDepthProvider reports the number of queued dead letters.
type DeadLetterDepthProvider interface {
	Len(ctx context.Context) (int64, error)
}

// IntegrationMetricsConfig holds configuration for integration metrics.
type IntegrationMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	DepthProvider DeadLetterDepthProvider
}

// NewIntegrationMetrics creates the gateway and webhook instruments.
func NewIntegrationMetrics(cfg IntegrationMetricsConfig) (*IntegrationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &IntegrationMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		depthProvider: cfg.DepthProvider,
	}

	var err error

	m.gatewayRequestsTotal, err = NewCounter(cfg.Meter,
		"gateway_requests_total",
		"Total number of outbound marketplace calls",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	m.gatewayRequestDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "gateway_request_duration_seconds",
		Description: "Duration of outbound marketplace calls",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.gatewayCacheHitsTotal, err = NewCounter(cfg.Meter,
		"gateway_cache_hits_total",
		"Outbound calls served from the response cache",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	m.gatewayCircuitOpen, err = NewCounter(cfg.Meter,
		"gateway_circuit_open_total",
		"Outbound calls refused by an open circuit breaker",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	m.gatewayRateLimited, err = NewCounter(cfg.Meter,
		"gateway_rate_limited_total",
		"Outbound calls refused by the rate limiter",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	m.webhookEventsTotal, err = NewCounter(cfg.Meter,
		"webhook_events_total",
		"Inbound webhook deliveries by terminal status",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	m.deadLetterDepth, err = NewGauge(cfg.Meter,
		"dead_letter_queue_depth",
		"Failed webhook events waiting for replay",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// =============================================================================
// Gateway Metrics
// =============================================================================

// RecordGatewayCall records one outbound call and its duration
func (m *IntegrationMetrics) RecordGatewayCall(ctx context.Context, marketplace, endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequestsTotal.Inc(ctx,
		AttrMarketplace.String(marketplace),
		AttrEndpoint.String(endpoint),
		AttrOutcome.String(outcome),
	)
	m.gatewayRequestDuration.RecordDuration(ctx, d,
		AttrMarketplace.String(marketplace),
		AttrEndpoint.String(endpoint),
	)
}

// RecordCacheHit records a call answered from cache
func (m *IntegrationMetrics) RecordCacheHit(ctx context.Context, marketplace, endpoint string) {
	if m == nil {
		return
	}
	m.gatewayCacheHitsTotal.Inc(ctx, AttrMarketplace.String(marketplace), AttrEndpoint.String(endpoint))
}

// RecordCircuitOpen records a call refused by an open breaker
func (m *IntegrationMetrics) RecordCircuitOpen(ctx context.Context, marketplace, endpoint string) {
	if m == nil {
		return
	}
	m.gatewayCircuitOpen.Inc(ctx, AttrMarketplace.String(marketplace), AttrEndpoint.String(endpoint))
}

// RecordRateLimited records a call refused by the rate limiter
func (m *IntegrationMetrics) RecordRateLimited(ctx context.Context, marketplace, endpoint string) {
	if m == nil {
		return
	}
	m.gatewayRateLimited.Inc(ctx, AttrMarketplace.String(marketplace), AttrEndpoint.String(endpoint))
}

// =============================================================================
// Webhook Metrics
// =============================================================================

// RecordWebhookEvent records a delivery reaching a terminal status
func (m *IntegrationMetrics) RecordWebhookEvent(ctx context.Context, marketplace, eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.Inc(ctx,
		AttrMarketplace.String(marketplace),
		AttrEventType.String(eventType),
		AttrStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection samples the dead-letter depth every interval (default 1 minute).
// Non-blocking; use Stop to end collection.
func (m *IntegrationMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if m == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go m.runPeriodicCollection(ctx, interval)
	})
}

func (m *IntegrationMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectDeadLetterDepth(ctx)

	for {
		select {
		case <-m.stopChan:
			m.logger.Info("Stopping periodic integration metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectDeadLetterDepth(ctx)
		}
	}
}

func (m *IntegrationMetrics) collectDeadLetterDepth(ctx context.Context) {
	if m.depthProvider == nil {
		return
	}
	depth, err := m.depthProvider.Len(ctx)
	if err != nil {
		m.logger.Warn("Failed to read dead-letter queue depth", zap.Error(err))
		return
	}
	m.deadLetterDepth.Record(ctx, depth)
}

// Stop stops the periodic collection.
func (m *IntegrationMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewIntegrationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
