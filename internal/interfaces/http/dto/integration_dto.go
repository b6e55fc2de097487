package dto

import "time"

// AuditQuery filters webhook logs, notifications and api request logs
type AuditQuery struct {
	Marketplace string    `form:"marketplace" binding:"omitempty,marketplace"`
	EventType   string    `form:"event_type" binding:"omitempty,max=50"`
	Since       time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit       int       `form:"limit" binding:"omitempty,min=1,max=500"`
}

// StatsQuery scopes webhook statistics
type StatsQuery struct {
	Marketplace string    `form:"marketplace" binding:"omitempty,marketplace"`
	Since       time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ReplayRequest bounds one manual dead-letter replay
type ReplayRequest struct {
	Max int `json:"max" binding:"omitempty,min=1,max=1000"`
}

// OrdersQuery filters a remote order fetch
type OrdersQuery struct {
	Since    string `form:"since" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,max=50"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// CategoriesQuery filters a remote category fetch
type CategoriesQuery struct {
	Query string `form:"q" binding:"omitempty,max=100"`
}

// PriceUpdateRequest pushes a price to a marketplace
type PriceUpdateRequest struct {
	SKU   string `json:"sku" binding:"required,max=100"`
	Price string `json:"price" binding:"required,price"`
}

// InventoryUpdateRequest pushes a stock quantity to a marketplace
type InventoryUpdateRequest struct {
	SKU      string `json:"sku" binding:"required,max=100"`
	Quantity *int   `json:"quantity" binding:"required,gte=0"`
}

// StatsResponse aggregates webhook outcomes since a point in time
type StatsResponse struct {
	Since time.Time `json:"since"`
	Total int64     `json:"total"`
	Stats any       `json:"stats"`
}

// ReplayResponse reports a manual dead-letter replay
type ReplayResponse struct {
	Report  any   `json:"report"`
	Pending int64 `json:"pending"`
}
