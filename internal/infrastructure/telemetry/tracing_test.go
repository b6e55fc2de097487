package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartSpan_Attributes(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := telemetry.StartSpan(context.Background(), "webhook.process",
		telemetry.WithAttribute(telemetry.SpanAttrMarketplace, "trendyol"),
		telemetry.WithAttribute(telemetry.SpanAttrAttempt, 2),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))

	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, "applied", 42, "skipped", "dangling")
	telemetry.AddEvent(span, "low_stock", telemetry.SpanAttrSKU, "SKU-1")
	telemetry.SetOK(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "webhook.process", got.Name())
	assert.Equal(t, trace.SpanKindServer, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)

	attrs := attrMap(got.Attributes())
	assert.Equal(t, "trendyol", attrs[telemetry.SpanAttrMarketplace].AsString())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrAttempt].AsInt64())
	assert.Equal(t, "applied", attrs[telemetry.SpanAttrOutcome].AsString())
	assert.Len(t, attrs, 3)

	require.Len(t, got.Events(), 1)
	assert.Equal(t, "low_stock", got.Events()[0].Name)
}

func TestStartServiceSpan_RecordError(t *testing.T) {
	recorder := installRecorder(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "reconciler", "Apply")
	telemetry.RecordError(span, errors.New("stale version"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "reconciler.Apply", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "stale version", ended[0].Status().Description)
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "event")
	})
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
