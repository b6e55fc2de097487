package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
)

// Tracing returns otelgin followed by a handler that tags the server span
// with the request id and the marketplace path parameter.
//
//	router.Use(middleware.Tracing(cfg.Telemetry.ServiceName)...)
func Tracing(serviceName string, opts ...otelgin.Option) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName, opts...), enrichSpan}
}

func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if marketplace := c.Param("marketplace"); marketplace != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrMarketplace, marketplace))
		}
	}
	c.Next()
}

// SpanErrorMarker marks the active span as failed for 4xx/5xx responses.
// Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
