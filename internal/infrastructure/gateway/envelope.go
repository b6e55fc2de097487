package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// CacheStatus reports whether a call was answered from the response cache.
// Calls that never consult the cache report a miss.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// Meta carries call diagnostics
type Meta struct {
	ProcessingTimeMs float64     `json:"processing_time_ms"`
	CacheStatus      CacheStatus `json:"cache_status"`
}

// Envelope is the uniform result of every outbound call.
// Message is always client-safe; downstream error text is only logged.
type Envelope struct {
	Success     bool                        `json:"success"`
	StatusCode  int                         `json:"status_code"`
	Message     string                      `json:"message"`
	Data        any                         `json:"data"`
	Timestamp   string                      `json:"timestamp"`
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	Meta        Meta                        `json:"meta"`

	// ErrorKind classifies a failed call. Not serialized.
	ErrorKind integration.ErrorKind `json:"-"`
}

func newEnvelope(marketplace integration.MarketplaceCode, now time.Time) Envelope {
	return Envelope{
		Marketplace: marketplace,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
}

func (e *Envelope) succeed(data any) {
	e.Success = true
	e.StatusCode = integration.ErrorKindNone.HTTPStatus()
	e.Message = integration.ErrorKindNone.PublicMessage()
	e.Data = data
}

func (e *Envelope) fail(kind integration.ErrorKind) {
	e.Success = false
	e.ErrorKind = kind
	e.StatusCode = kind.HTTPStatus()
	e.Message = kind.PublicMessage()
	e.Data = nil
}

// Decode unmarshals Data into v. It works for both fresh results and
// cached raw JSON.
func (e Envelope) Decode(v any) error {
	if !e.Success {
		return fmt.Errorf("decode failed envelope: %s", e.Message)
	}
	if raw, ok := e.Data.(json.RawMessage); ok {
		return json.Unmarshal(raw, v)
	}
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Reject builds a failed envelope for a request that never reached the
// gateway, such as an unknown marketplace or invalid parameters.
func Reject(marketplace integration.MarketplaceCode, err error) Envelope {
	env := newEnvelope(marketplace, time.Now())
	env.fail(integration.KindOf(err))
	env.Meta.CacheStatus = CacheMiss
	return env
}
