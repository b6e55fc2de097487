package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing("marketplace-gateway-test", otelgin.WithTracerProvider(tp))...)
	router.Use(SpanErrorMarker())
	router.POST("/webhook/:marketplace", func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]string {
	out := map[string]string{}
	for _, kv := range span.Attributes() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestTracing_EnrichesServerSpan(t *testing.T) {
	router, recorder := tracedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/trendyol", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := spanAttrs(ended[0])
	assert.Equal(t, "req-42", attrs["request_id"])
	assert.Equal(t, "trendyol", attrs["marketplace"])
	assert.NotEqual(t, codes.Error, ended[0].Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	router, recorder := tracedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/trendyol?fail=1", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "Unauthorized", ended[0].Status().Description)
}
