package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	tests := []struct {
		name     string
		header   string
		expectID func(t *testing.T, got string)
	}{
		{
			name: "generates id",
			expectID: func(t *testing.T, got string) {
				assert.Len(t, got, 32)
			},
		},
		{
			name:   "reuses client id",
			header: "req-123",
			expectID: func(t *testing.T, got string) {
				assert.Equal(t, "req-123", got)
			},
		},
		{
			name:   "replaces oversized client id",
			header: strings.Repeat("a", MaxRequestIDLength+1),
			expectID: func(t *testing.T, got string) {
				assert.Len(t, got, 32)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			tt.expectID(t, w.Body.String())
			assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
		})
	}
}

func TestSecure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("default headers without HSTS or CORS", func(t *testing.T) {
		router := gin.New()
		router.Use(Secure())
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://example.com")
		router.ServeHTTP(w, req)

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("HSTS when enabled", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.HSTSEnabled = true
		router := gin.New()
		router.Use(SecureWithConfig(cfg))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	})
}
