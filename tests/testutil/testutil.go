// Package testutil provides helpers shared by the HTTP-level test suites.
package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erp/marketplace-gateway/internal/infrastructure/auth"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/webhook"
)

// SignedWebhookRequest builds a webhook delivery for marketplace signed with
// secret under the marketplace's default signature header.
func SignedWebhookRequest(t *testing.T, baseURL, marketplace, secret, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/webhook/"+marketplace, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.DefaultSignatureHeader(marketplace), webhook.Sign(secret, []byte(body)))
	return req
}

// AdminRequest builds an admin API request carrying a token with scopes
func AdminRequest(t *testing.T, jwt *auth.JWTService, method, url string, body io.Reader, scopes ...string) *http.Request {
	t.Helper()
	token, _, err := jwt.IssueToken("ops@example.com", scopes...)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}
