// Package webhook verifies inbound marketplace webhook signatures.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
)

const signaturePrefix = "sha256="

type secretEntry struct {
	secret          string
	signatureHeader string
	timestampHeader string
}

// Verifier checks HMAC-SHA256 signatures of raw webhook bodies.
// It holds only immutable configuration and is safe for concurrent use.
type Verifier struct {
	entries   map[integration.MarketplaceCode]secretEntry
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithClock overrides time.Now for timestamp checks
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier builds a verifier from the marketplace configuration
func NewVerifier(webhookCfg config.WebhookConfig, marketplaces map[string]config.MarketplaceConfig, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		entries:   make(map[integration.MarketplaceCode]secretEntry, len(marketplaces)),
		tolerance: time.Duration(webhookCfg.TimestampToleranceSeconds) * time.Second,
		now:       time.Now,
	}
	for code, mc := range marketplaces {
		header := mc.SignatureHeader
		if header == "" {
			header = config.DefaultSignatureHeader(code)
		}
		v.entries[integration.ParseMarketplaceCode(code)] = secretEntry{
			secret:          mc.WebhookSecret,
			signatureHeader: header,
			timestampHeader: strings.TrimSuffix(header, "-Signature") + "-Timestamp",
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// HeaderName returns the signature header a marketplace signs with
func (v *Verifier) HeaderName(marketplace integration.MarketplaceCode) string {
	if e, ok := v.entries[marketplace]; ok {
		return e.signatureHeader
	}
	return config.DefaultSignatureHeader(string(marketplace))
}

// Verify reports whether signature is the hex HMAC-SHA256 of body under the
// marketplace secret. A marketplace without a secret never verifies.
func (v *Verifier) Verify(marketplace integration.MarketplaceCode, body []byte, signature string) bool {
	e, ok := v.entries[marketplace]
	if !ok || e.secret == "" {
		return false
	}
	return compare(e.secret, body, signature)
}

// VerifyRequest checks the signature headers of a request. When a timestamp
// tolerance is configured the timestamp header is required, the signed
// content is "timestamp.body" and stale deliveries are refused.
func (v *Verifier) VerifyRequest(marketplace integration.MarketplaceCode, body []byte, headers http.Header) error {
	e, ok := v.entries[marketplace]
	if !ok || e.secret == "" {
		return integration.ErrInvalidSignature
	}
	signature := headers.Get(e.signatureHeader)

	if v.tolerance > 0 {
		ts := headers.Get(e.timestampHeader)
		if ts == "" {
			return integration.ErrInvalidSignature
		}
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return integration.ErrInvalidSignature
		}
		age := v.now().Sub(time.Unix(sec, 0))
		if age > v.tolerance || age < -v.tolerance {
			return integration.ErrInvalidSignature
		}
		signed := make([]byte, 0, len(ts)+1+len(body))
		signed = append(append(append(signed, ts...), '.'), body...)
		if !compare(e.secret, signed, signature) {
			return integration.ErrInvalidSignature
		}
		return nil
	}

	if !compare(e.secret, body, signature) {
		return integration.ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func compare(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(signature) > len(signaturePrefix) && strings.EqualFold(signature[:len(signaturePrefix)], signaturePrefix) {
		signature = signature[len(signaturePrefix):]
	}
	if signature == "" {
		return false
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), given)
}
