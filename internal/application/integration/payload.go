package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// WebhookEnvelope is the JSON body every marketplace posts
type WebhookEnvelope struct {
	EventType string          `json:"eventType" validate:"required"`
	WebhookID string          `json:"webhookId"`
	Data      json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a webhook body. A missing eventType is malformed.
func ParseEnvelope(body []byte) (*WebhookEnvelope, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrMalformedPayload, err)
	}
	env.EventType = strings.TrimSpace(env.EventType)
	if err := validate.Struct(&env); err != nil {
		return nil, fmt.Errorf("%w: eventType is required", integration.ErrMalformedPayload)
	}
	return &env, nil
}

// EventData is the union of fields the reconciler reads from the data object.
// Marketplaces disagree on spelling, so the accessors below try each alias.
type EventData struct {
	OrderNumber     string                  `json:"orderNumber"`
	OrderID         flexString              `json:"orderId"`
	ID              flexString              `json:"id"`
	Status          string                  `json:"status"`
	Items           []integration.OrderItem `json:"items"`
	SKU             string                  `json:"sku"`
	MerchantSKU     string                  `json:"merchantSku"`
	ProductID       flexString              `json:"productId"`
	Price           *decimal.Decimal        `json:"price"`
	NewPrice        *decimal.Decimal        `json:"newPrice"`
	Stock           *int                    `json:"stock"`
	NewStock        *int                    `json:"newStock"`
	Quantity        *int                    `json:"quantity"`
	Qty             *int                    `json:"qty"`
	Reason          string                  `json:"reason"`
	RejectionReason string                  `json:"rejectionReason"`
	Amount          *decimal.Decimal        `json:"amount"`
	Timestamp       json.RawMessage         `json:"timestamp"`
}

// DecodeEventData decodes the data object. An absent data object yields an empty EventData.
func DecodeEventData(raw json.RawMessage) (EventData, error) {
	var data EventData
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("%w: invalid data object: %v", integration.ErrMalformedPayload, err)
	}
	return data, nil
}

// ExternalOrderID returns the marketplace order number
func (d EventData) ExternalOrderID() string {
	for _, v := range []string{d.OrderNumber, string(d.OrderID), string(d.ID)} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// ListingSKU returns the SKU the event refers to
func (d EventData) ListingSKU() string {
	if s := strings.TrimSpace(d.MerchantSKU); s != "" {
		return s
	}
	return strings.TrimSpace(d.SKU)
}

// ListingPrice returns the reported price
func (d EventData) ListingPrice() (decimal.Decimal, bool) {
	switch {
	case d.NewPrice != nil:
		return *d.NewPrice, true
	case d.Price != nil:
		return *d.Price, true
	}
	return decimal.Zero, false
}

// ListingStock returns the reported stock
func (d EventData) ListingStock() (int, bool) {
	for _, v := range []*int{d.NewStock, d.Stock, d.Quantity, d.Qty} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// RejectReason returns the moderation rejection reason
func (d EventData) RejectReason() string {
	if d.RejectionReason != "" {
		return d.RejectionReason
	}
	return d.Reason
}

// EventTime returns data.timestamp (RFC3339 or unix seconds), or fallback
func (d EventData) EventTime(fallback time.Time) time.Time {
	raw := bytes.TrimSpace(d.Timestamp)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return fallback
		}
	} else {
		s = string(raw)
	}
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
		whole := int64(secs)
		nanos := int64((secs - float64(whole)) * float64(time.Second))
		return time.Unix(whole, nanos).UTC()
	}
	return fallback
}

// flexString accepts both JSON strings and numbers
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
