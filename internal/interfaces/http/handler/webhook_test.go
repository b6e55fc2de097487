package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
)

type mockWebhookProcessor struct {
	mock.Mock
}

func (m *mockWebhookProcessor) Handle(ctx context.Context, marketplace string, body []byte, headers http.Header) (*appintegration.WebhookResult, error) {
	args := m.Called(ctx, marketplace, body, headers)
	result, _ := args.Get(0).(*appintegration.WebhookResult)
	return result, args.Error(1)
}

func newWebhookEngine(processor WebhookProcessor, maxBody int64) *gin.Engine {
	engine := gin.New()
	h := NewWebhookHandler(processor)
	engine.POST("/webhook/:marketplace", middleware.BodyLimit(maxBody), h.Receive)
	return engine
}

func postWebhook(engine *gin.Engine, marketplace string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+marketplace, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trendyol-Signature", "sig")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookHandlerReceive(t *testing.T) {
	body := []byte(`{"eventType":"order.created","data":{"orderId":"TY-1"}}`)

	tests := []struct {
		name         string
		result       *appintegration.WebhookResult
		err          error
		expectedCode int
		expectedBody map[string]string
	}{
		{
			name: "applied event is acknowledged",
			result: &appintegration.WebhookResult{
				WebhookEventID: uuid.New(),
				Status:         integration.ProcessingStatusApplied,
			},
			expectedCode: http.StatusOK,
			expectedBody: map[string]string{"status": "success"},
		},
		{
			name:         "unknown event type is acknowledged",
			result:       &appintegration.WebhookResult{WebhookEventID: uuid.New()},
			err:          integration.ErrUnknownEventType,
			expectedCode: http.StatusOK,
			expectedBody: map[string]string{"status": "success"},
		},
		{
			name:         "invalid signature",
			err:          integration.ErrInvalidSignature,
			expectedCode: http.StatusUnauthorized,
			expectedBody: map[string]string{"error": "Invalid signature"},
		},
		{
			name:         "malformed payload",
			err:          integration.ErrMalformedPayload,
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]string{"error": integration.ErrMalformedPayload.Error()},
		},
		{
			name:         "marketplace not configured",
			err:          integration.ErrMarketplaceNotConfigured,
			expectedCode: http.StatusNotFound,
			expectedBody: map[string]string{"error": "Unknown marketplace"},
		},
		{
			name:         "marketplace disabled",
			err:          integration.ErrMarketplaceDisabled,
			expectedCode: http.StatusNotFound,
			expectedBody: map[string]string{"error": "Unknown marketplace"},
		},
		{
			name:         "persistence failure",
			result:       &appintegration.WebhookResult{WebhookEventID: uuid.New()},
			err:          errors.New("insert webhook event: connection reset"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: map[string]string{"error": "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(mockWebhookProcessor)
			processor.On("Handle", mock.Anything, "trendyol", body, mock.Anything).Return(tt.result, tt.err)
			engine := newWebhookEngine(processor, 64*1024)

			w := postWebhook(engine, "trendyol", body)

			assert.Equal(t, tt.expectedCode, w.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.expectedBody, got)
			processor.AssertExpectations(t)
		})
	}
}

func TestWebhookHandlerPassesSignatureHeaders(t *testing.T) {
	processor := new(mockWebhookProcessor)
	processor.On("Handle", mock.Anything, "trendyol", mock.Anything, mock.MatchedBy(func(h http.Header) bool {
		return h.Get("X-Trendyol-Signature") == "sig"
	})).Return(&appintegration.WebhookResult{}, nil)
	engine := newWebhookEngine(processor, 64*1024)

	w := postWebhook(engine, "trendyol", []byte(`{"eventType":"order.created"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	processor.AssertExpectations(t)
}

func TestWebhookHandlerPayloadTooLarge(t *testing.T) {
	processor := new(mockWebhookProcessor)
	engine := newWebhookEngine(processor, 16)

	w := postWebhook(engine, "trendyol", bytes.Repeat([]byte("x"), 64))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), middleware.PayloadTooLargeMessage)
	processor.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandlerChunkedPayloadTooLarge(t *testing.T) {
	processor := new(mockWebhookProcessor)
	engine := newWebhookEngine(processor, 16)

	req := httptest.NewRequest(http.MethodPost, "/webhook/trendyol", bytes.NewReader(bytes.Repeat([]byte("x"), 64)))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	processor.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
