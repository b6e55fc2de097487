package ecommerce

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/marketplace-gateway/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Hepsiburada API Types
// ---------------------------------------------------------------------------

// HepsiburadaOrderListResponse is the paged order list
type HepsiburadaOrderListResponse struct {
	TotalCount int                `json:"totalCount"`
	Offset     int                `json:"offset"`
	Limit      int                `json:"limit"`
	Items      []HepsiburadaOrder `json:"items"`
}

// HepsiburadaOrder is a single merchant order
type HepsiburadaOrder struct {
	OrderNumber string                 `json:"orderNumber"`
	Status      string                 `json:"status"`
	OrderDate   string                 `json:"orderDate"`
	Lines       []HepsiburadaOrderLine `json:"lines"`
}

// HepsiburadaOrderLine is one line item of an order
type HepsiburadaOrderLine struct {
	MerchantSKU string `json:"merchantSku"`
	HBSKU       string `json:"hbSku"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

// HepsiburadaCategoryListResponse is the category search result
type HepsiburadaCategoryListResponse struct {
	Success    bool                  `json:"success"`
	TotalCount int                   `json:"totalElements"`
	Data       []HepsiburadaCategory `json:"data"`
}

// HepsiburadaCategory is a catalog category
type HepsiburadaCategory struct {
	CategoryID       int64  `json:"categoryId"`
	Name             string `json:"name"`
	ParentCategoryID int64  `json:"parentCategoryId"`
	Leaf             bool   `json:"leaf"`
	Available        bool   `json:"available"`
}

// HepsiburadaStockPriceUpdate is one entry of a stock/price update batch.
// Exactly one of Price or AvailableStock is set per entry.
type HepsiburadaStockPriceUpdate struct {
	MerchantSKU    string           `json:"merchantSku"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	AvailableStock *int             `json:"availableStock,omitempty"`
}

// HepsiburadaErrorResponse is the body returned with 4xx/5xx responses
type HepsiburadaErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toRemoteOrder converts a Hepsiburada order to the marketplace-neutral shape
func (o *HepsiburadaOrder) toRemoteOrder() integration.RemoteOrder {
	order := integration.RemoteOrder{
		ExternalOrderID: o.OrderNumber,
		Status:          mapHepsiburadaOrderStatus(o.Status).String(),
		Items:           make([]integration.OrderItem, 0, len(o.Lines)),
	}
	if o.OrderDate != "" {
		if t, err := time.Parse(time.RFC3339, o.OrderDate); err == nil {
			order.CreatedAt = t.UTC()
		}
	}
	for _, line := range o.Lines {
		sku := line.MerchantSKU
		if sku == "" {
			sku = line.HBSKU
		}
		order.Items = append(order.Items, integration.OrderItem{SKU: sku, Quantity: line.Quantity})
	}
	return order
}

// toCategory converts a Hepsiburada category to the marketplace-neutral shape
func (c *HepsiburadaCategory) toCategory() integration.Category {
	category := integration.Category{
		ID:   formatID(c.CategoryID),
		Name: c.Name,
		Leaf: c.Leaf,
	}
	if c.ParentCategoryID > 0 {
		category.ParentID = formatID(c.ParentCategoryID)
	}
	return category
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// mapHepsiburadaOrderStatus maps a Hepsiburada package status to an order status.
// Unknown statuses map to Received so the order is still recorded.
func mapHepsiburadaOrderStatus(status string) integration.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "intransit", "in_transit", "shipped":
		return integration.OrderStatusShipped
	case "delivered":
		return integration.OrderStatusDelivered
	case "cancelled", "canceled", "cancelledbymerchant", "cancelledbycustomer":
		return integration.OrderStatusCancelled
	default:
		return integration.OrderStatusReceived
	}
}
