package integration

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// MarketplaceCode identifies an external marketplace
// ---------------------------------------------------------------------------

// MarketplaceCode identifies an external marketplace. Codes are lowercase and
// appear verbatim in webhook URLs and configuration keys.
type MarketplaceCode string

const (
	// MarketplaceHepsiburada represents Hepsiburada
	MarketplaceHepsiburada MarketplaceCode = "hepsiburada"
	// MarketplaceTrendyol represents Trendyol
	MarketplaceTrendyol MarketplaceCode = "trendyol"
	// MarketplaceN11 represents N11
	MarketplaceN11 MarketplaceCode = "n11"
	// MarketplaceAmazon represents Amazon
	MarketplaceAmazon MarketplaceCode = "amazon"
	// MarketplaceEbay represents eBay
	MarketplaceEbay MarketplaceCode = "ebay"
)

// ParseMarketplaceCode normalizes s into a MarketplaceCode
func ParseMarketplaceCode(s string) MarketplaceCode {
	return MarketplaceCode(strings.ToLower(strings.TrimSpace(s)))
}

// IsValid returns true if the code is non-empty and contains only [a-z0-9_-]
func (c MarketplaceCode) IsValid() bool {
	if c == "" || len(c) > 32 {
		return false
	}
	for _, r := range string(c) {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// String returns the string representation of MarketplaceCode
func (c MarketplaceCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the marketplace
func (c MarketplaceCode) DisplayName() string {
	switch c {
	case MarketplaceHepsiburada:
		return "Hepsiburada"
	case MarketplaceTrendyol:
		return "Trendyol"
	case MarketplaceN11:
		return "N11"
	case MarketplaceAmazon:
		return "Amazon"
	case MarketplaceEbay:
		return "eBay"
	default:
		if c == "" {
			return ""
		}
		return strings.ToUpper(string(c[:1])) + string(c[1:])
	}
}

// ---------------------------------------------------------------------------
// MarketplaceAdapter is the outbound port every marketplace implements
// ---------------------------------------------------------------------------

// MarketplaceAdapter defines the capabilities every marketplace integration provides.
// Implementations are only ever invoked through the outbound gateway, which owns
// rate limiting, caching and circuit breaking.
type MarketplaceAdapter interface {
	// Code returns the marketplace this adapter talks to
	Code() MarketplaceCode

	// TestConnection checks credentials and reachability, returning the round-trip latency
	TestConnection(ctx context.Context) (bool, time.Duration, error)

	// FetchOrders pulls orders matching the filter
	FetchOrders(ctx context.Context, filter OrderFilter) ([]RemoteOrder, error)

	// PushPrice updates the listing price of a SKU
	PushPrice(ctx context.Context, sku string, price decimal.Decimal) error

	// PushInventory updates the available quantity of a SKU
	PushInventory(ctx context.Context, sku string, quantity int) error

	// FetchCategories lists marketplace categories, optionally filtered by a search query
	FetchCategories(ctx context.Context, query string) ([]Category, error)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// OrderFilter narrows an order fetch
type OrderFilter struct {
	// Since returns orders created or updated after this instant (zero means no bound)
	Since time.Time
	// Status filters by marketplace-reported order status (optional)
	Status string
	// Page is the 1-indexed page number
	Page int
	// PageSize is the number of orders per page
	PageSize int
}

// Normalize applies paging defaults
func (f *OrderFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 50
	}
}

// Params flattens the filter into string parameters used for cache keys and query strings
func (f OrderFilter) Params() map[string]string {
	params := map[string]string{
		"page":      strconv.Itoa(f.Page),
		"page_size": strconv.Itoa(f.PageSize),
	}
	if !f.Since.IsZero() {
		params["since"] = f.Since.UTC().Format(time.RFC3339)
	}
	if f.Status != "" {
		params["status"] = f.Status
	}
	return params
}

// RemoteOrder is an order as reported by a marketplace API
type RemoteOrder struct {
	ExternalOrderID string      `json:"external_order_id"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Category is a marketplace product category
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Leaf     bool   `json:"leaf"`
}
