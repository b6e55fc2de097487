package integration

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/gateway"
)

// Gateway endpoint names, one per adapter capability
const (
	EndpointTestConnection  = "test_connection"
	EndpointFetchOrders     = "fetch_orders"
	EndpointPushPrice       = "push_price"
	EndpointPushInventory   = "push_inventory"
	EndpointFetchCategories = "fetch_categories"
)

// Endpoints lists every operation CallMarketplaceAPI accepts
func Endpoints() []string {
	return []string{
		EndpointTestConnection,
		EndpointFetchOrders,
		EndpointPushPrice,
		EndpointPushInventory,
		EndpointFetchCategories,
	}
}

// AdapterRegistry holds the adapter of every configured marketplace
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[integration.MarketplaceCode]integration.MarketplaceAdapter
}

// NewAdapterRegistry creates a registry holding the given adapters
func NewAdapterRegistry(adapters ...integration.MarketplaceAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[integration.MarketplaceCode]integration.MarketplaceAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its marketplace
func (r *AdapterRegistry) Register(adapter integration.MarketplaceAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Code()] = adapter
}

// Get returns the adapter for a marketplace
func (r *AdapterRegistry) Get(code integration.MarketplaceCode) (integration.MarketplaceAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrAdapterNotRegistered, code)
	}
	return a, nil
}

// Codes returns the registered marketplaces in sorted order
func (r *AdapterRegistry) Codes() []integration.MarketplaceCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]integration.MarketplaceCode, 0, len(r.adapters))
	for code := range r.adapters {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// ConnectionStatus is the payload of a test_connection envelope
type ConnectionStatus struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latency_ms"`
}

// MarketplaceClient calls marketplace adapters through the outbound gateway
type MarketplaceClient struct {
	gateway  *gateway.Gateway
	adapters *AdapterRegistry
	logger   *zap.Logger
}

// NewMarketplaceClient creates a new MarketplaceClient
func NewMarketplaceClient(gw *gateway.Gateway, adapters *AdapterRegistry, logger *zap.Logger) *MarketplaceClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketplaceClient{gateway: gw, adapters: adapters, logger: logger}
}

// TestConnection checks credentials and reachability of a marketplace
func (c *MarketplaceClient) TestConnection(ctx context.Context, code integration.MarketplaceCode) gateway.Envelope {
	adapter, err := c.adapters.Get(code)
	if err != nil {
		return gateway.Reject(code, err)
	}
	req := gateway.Request{Marketplace: code, Endpoint: EndpointTestConnection}
	return c.gateway.Call(ctx, req, func(ctx context.Context) (any, error) {
		ok, latency, err := adapter.TestConnection(ctx)
		if err != nil {
			return nil, err
		}
		return ConnectionStatus{Connected: ok, LatencyMs: float64(latency.Microseconds()) / 1000}, nil
	})
}

// FetchOrders pulls orders; the envelope data decodes to []integration.RemoteOrder
func (c *MarketplaceClient) FetchOrders(ctx context.Context, code integration.MarketplaceCode, filter integration.OrderFilter) gateway.Envelope {
	adapter, err := c.adapters.Get(code)
	if err != nil {
		return gateway.Reject(code, err)
	}
	filter.Normalize()
	req := gateway.Request{Marketplace: code, Endpoint: EndpointFetchOrders, Params: filter.Params(), Cacheable: true}
	return c.gateway.Call(ctx, req, func(ctx context.Context) (any, error) {
		return adapter.FetchOrders(ctx, filter)
	})
}

// PushPrice updates a listing price
func (c *MarketplaceClient) PushPrice(ctx context.Context, code integration.MarketplaceCode, sku string, price decimal.Decimal) gateway.Envelope {
	adapter, err := c.adapters.Get(code)
	if err != nil {
		return gateway.Reject(code, err)
	}
	req := gateway.Request{
		Marketplace: code,
		Endpoint:    EndpointPushPrice,
		Params:      map[string]string{"sku": sku, "price": price.String()},
	}
	return c.gateway.Call(ctx, req, func(ctx context.Context) (any, error) {
		if err := adapter.PushPrice(ctx, sku, price); err != nil {
			return nil, err
		}
		return map[string]any{"sku": sku, "price": price}, nil
	})
}

// PushInventory updates a listing's available quantity
func (c *MarketplaceClient) PushInventory(ctx context.Context, code integration.MarketplaceCode, sku string, quantity int) gateway.Envelope {
	adapter, err := c.adapters.Get(code)
	if err != nil {
		return gateway.Reject(code, err)
	}
	req := gateway.Request{
		Marketplace: code,
		Endpoint:    EndpointPushInventory,
		Params:      map[string]string{"sku": sku, "quantity": strconv.Itoa(quantity)},
	}
	return c.gateway.Call(ctx, req, func(ctx context.Context) (any, error) {
		if err := adapter.PushInventory(ctx, sku, quantity); err != nil {
			return nil, err
		}
		return map[string]any{"sku": sku, "quantity": quantity}, nil
	})
}

// FetchCategories lists categories; the envelope data decodes to []integration.Category
func (c *MarketplaceClient) FetchCategories(ctx context.Context, code integration.MarketplaceCode, query string) gateway.Envelope {
	adapter, err := c.adapters.Get(code)
	if err != nil {
		return gateway.Reject(code, err)
	}
	var params map[string]string
	if query != "" {
		params = map[string]string{"query": query}
	}
	req := gateway.Request{Marketplace: code, Endpoint: EndpointFetchCategories, Params: params, Cacheable: true}
	return c.gateway.Call(ctx, req, func(ctx context.Context) (any, error) {
		return adapter.FetchCategories(ctx, query)
	})
}

// Call runs a named operation with string parameters. Unknown operations and
// unparseable parameters fail with a validation envelope without reaching the gateway.
func (c *MarketplaceClient) Call(ctx context.Context, code integration.MarketplaceCode, operation string, params map[string]string) gateway.Envelope {
	switch operation {
	case EndpointTestConnection:
		return c.TestConnection(ctx, code)

	case EndpointFetchOrders:
		filter, err := orderFilterFromParams(params)
		if err != nil {
			return gateway.Reject(code, err)
		}
		return c.FetchOrders(ctx, code, filter)

	case EndpointPushPrice:
		sku := params["sku"]
		price, err := decimal.NewFromString(params["price"])
		if sku == "" || err != nil {
			return gateway.Reject(code, fmt.Errorf("%w: sku and numeric price are required", integration.ErrValidation))
		}
		return c.PushPrice(ctx, code, sku, price)

	case EndpointPushInventory:
		sku := params["sku"]
		quantity, err := strconv.Atoi(params["quantity"])
		if sku == "" || err != nil {
			return gateway.Reject(code, fmt.Errorf("%w: sku and integer quantity are required", integration.ErrValidation))
		}
		return c.PushInventory(ctx, code, sku, quantity)

	case EndpointFetchCategories:
		return c.FetchCategories(ctx, code, params["query"])

	default:
		c.logger.Warn("unsupported marketplace operation",
			zap.String("marketplace", string(code)),
			zap.String("operation", operation))
		return gateway.Reject(code, fmt.Errorf("%w: %s", integration.ErrUnsupportedOperation, operation))
	}
}

func orderFilterFromParams(params map[string]string) (integration.OrderFilter, error) {
	var filter integration.OrderFilter
	if v := params["since"]; v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: since must be RFC3339", integration.ErrValidation)
		}
		filter.Since = since
	}
	filter.Status = params["status"]
	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		v := params[name]
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("%w: %s must be an integer", integration.ErrValidation, name)
		}
		*dst = n
	}
	filter.Normalize()
	return filter, nil
}
