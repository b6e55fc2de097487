package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from a marketplace API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrHepsiburadaInvalidSKU indicates an empty or malformed merchant SKU
var ErrHepsiburadaInvalidSKU = fmt.Errorf("%w: hepsiburada: invalid merchant sku", integration.ErrValidation)

// HepsiburadaAdapter implements integration.MarketplaceAdapter for Hepsiburada
type HepsiburadaAdapter struct {
	config     *HepsiburadaConfig
	httpClient *http.Client
}

// Compile-time interface check
var _ integration.MarketplaceAdapter = (*HepsiburadaAdapter)(nil)

// NewHepsiburadaAdapter creates a new Hepsiburada adapter with the given configuration
func NewHepsiburadaAdapter(config *HepsiburadaConfig) (*HepsiburadaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HepsiburadaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Code returns the marketplace this adapter handles
func (a *HepsiburadaAdapter) Code() integration.MarketplaceCode {
	return integration.MarketplaceHepsiburada
}

// TestConnection calls the merchant endpoint and reports the round-trip latency
func (a *HepsiburadaAdapter) TestConnection(ctx context.Context) (bool, time.Duration, error) {
	start := time.Now()
	_, err := a.doRequest(ctx, http.MethodGet, a.merchantPath("merchants"), nil, nil)
	latency := time.Since(start)
	if err != nil {
		return false, latency, err
	}
	return true, latency, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// FetchOrders pulls one page of orders
func (a *HepsiburadaAdapter) FetchOrders(ctx context.Context, filter integration.OrderFilter) ([]integration.RemoteOrder, error) {
	filter.Normalize()

	query := url.Values{}
	query.Set("offset", strconv.Itoa((filter.Page-1)*filter.PageSize))
	query.Set("limit", strconv.Itoa(filter.PageSize))
	if !filter.Since.IsZero() {
		query.Set("beginDate", filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, a.merchantPath("orders"), query, nil)
	if err != nil {
		return nil, err
	}

	var resp HepsiburadaOrderListResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", integration.ErrInvalidResponse, err)
	}

	orders := make([]integration.RemoteOrder, 0, len(resp.Items))
	for i := range resp.Items {
		if resp.Items[i].OrderNumber == "" {
			continue
		}
		orders = append(orders, resp.Items[i].toRemoteOrder())
	}
	return orders, nil
}

// ---------------------------------------------------------------------------
// Listing Operations
// ---------------------------------------------------------------------------

// PushPrice updates the listing price of a merchant SKU
func (a *HepsiburadaAdapter) PushPrice(ctx context.Context, sku string, price decimal.Decimal) error {
	if err := validateSKU(sku); err != nil {
		return err
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", integration.ErrValidation)
	}
	p := price.Round(2)
	return a.pushStockPrice(ctx, HepsiburadaStockPriceUpdate{MerchantSKU: sku, Price: &p})
}

// PushInventory updates the available stock of a merchant SKU
func (a *HepsiburadaAdapter) PushInventory(ctx context.Context, sku string, quantity int) error {
	if err := validateSKU(sku); err != nil {
		return err
	}
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", integration.ErrValidation)
	}
	return a.pushStockPrice(ctx, HepsiburadaStockPriceUpdate{MerchantSKU: sku, AvailableStock: &quantity})
}

func (a *HepsiburadaAdapter) pushStockPrice(ctx context.Context, update HepsiburadaStockPriceUpdate) error {
	body, err := json.Marshal([]HepsiburadaStockPriceUpdate{update})
	if err != nil {
		return fmt.Errorf("hepsiburada: failed to encode update: %w", err)
	}
	_, err = a.doRequest(ctx, http.MethodPut, a.merchantPath("products")+"/stock-price", nil, body)
	return err
}

// ---------------------------------------------------------------------------
// Category Operations
// ---------------------------------------------------------------------------

// FetchCategories lists available categories, filtered by name when query is set
func (a *HepsiburadaAdapter) FetchCategories(ctx context.Context, query string) ([]integration.Category, error) {
	params := url.Values{}
	params.Set("leaf", "true")
	params.Set("status", "ACTIVE")
	if q := strings.TrimSpace(query); q != "" {
		params.Set("name", q)
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, "/categories", params, nil)
	if err != nil {
		return nil, err
	}

	var resp HepsiburadaCategoryListResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", integration.ErrInvalidResponse, err)
	}

	categories := make([]integration.Category, 0, len(resp.Data))
	for i := range resp.Data {
		if !resp.Data[i].Available {
			continue
		}
		categories = append(categories, resp.Data[i].toCategory())
	}
	return categories, nil
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// merchantPath returns /{resource}/merchantid/{merchantId}
func (a *HepsiburadaAdapter) merchantPath(resource string) string {
	return "/" + resource + "/merchantid/" + url.PathEscape(a.config.MerchantID)
}

// doRequest sends an authenticated JSON request and returns the response body
func (a *HepsiburadaAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("hepsiburada: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.Username, a.config.Password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("hepsiburada: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// statusError maps an HTTP error status to an integration sentinel
func statusError(status int, body []byte) error {
	detail := fmt.Sprintf("HTTP %d", status)
	var apiErr HepsiburadaErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		detail = fmt.Sprintf("HTTP %d: %s", status, apiErr.Message)
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", integration.ErrRemoteAuthFailed, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", integration.ErrRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w: %s", integration.ErrDownstreamUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", integration.ErrRequestFailed, detail)
	}
}

func validateSKU(sku string) error {
	if strings.TrimSpace(sku) == "" || strings.ContainsAny(sku, "/?#") {
		return ErrHepsiburadaInvalidSKU
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
