package models

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeProductCreated      = "PRODUCT_CREATED"
	EventTypeProductUpdated      = "PRODUCT_UPDATED"
	EventTypeProductPriceChanged = "PRODUCT_PRICE_CHANGED"

	EventTypeInventoryCreated = "INVENTORY_CREATED"
	EventTypeInventoryUpdated = "INVENTORY_UPDATED"
	EventTypeStockAdded       = "STOCK_ADDED"

	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderUpdated   = "ORDER_UPDATED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"

	EventTypeCategoryCreated = "CATEGORY_CREATED"
	EventTypeCategoryUpdated = "CATEGORY_UPDATED"
)

// Envelope wraps every published event with identity, ordering and typing
// information. Version is issued by the per-aggregate version ledger; the
// payload is left raw so consumers decode it against their own DTOs.
// An envelope is immutable once constructed.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	AggregateKey string          `json:"aggregate_key"`
	Version      int64           `json:"version"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderCreatedEvent is the payload published when an order is confirmed
type OrderCreatedEvent struct {
	OrderID    int64       `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	Total      int64       `json:"total"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

// NewOrderCreatedEvent builds the event payload from a persisted order
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Status:     order.Status,
		CreatedAt:  order.CreatedAt,
		Items:      order.Items,
	}
}
