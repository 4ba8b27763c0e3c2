package service

import (
	"context"

	"retail-order-service/internal/models"
)

// OrderStore is the persistence surface the saga and retry sweep depend on.
// Implemented by store.Store.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	CreateOrderRetry(ctx context.Context, retry *models.OrderRetry) error
	ListOrderRetries(ctx context.Context) ([]models.OrderRetry, error)
	TouchOrderRetry(ctx context.Context, retryID int64) error
	DeleteOrderRetry(ctx context.Context, retryID int64) error
}

// ProcessedLedger is the dedup set of applied event ids. Implemented by
// store.Store.
type ProcessedLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ProductCache is the product slice of the local snapshot store.
// Implemented by snapcache.Cache.
type ProductCache interface {
	GetProduct(ctx context.Context, sku string) (*models.ProductSnapshot, bool, error)
	SaveProduct(ctx context.Context, snap *models.ProductSnapshot) error
}

// CategoryCache is the category slice of the local snapshot store
type CategoryCache interface {
	GetCategory(ctx context.Context, name string) (*models.CategorySnapshot, bool, error)
	SaveCategory(ctx context.Context, snap *models.CategorySnapshot) error
}

// InventoryCache is the inventory slice of the local snapshot store
type InventoryCache interface {
	GetInventory(ctx context.Context, productSKU string) (*models.InventorySnapshot, bool, error)
	SaveInventory(ctx context.Context, snap *models.InventorySnapshot) error
}

// Publisher emits versioned domain events. Implemented by
// broker.EventPublisher.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType, aggregateKey string, payload interface{}) error
}

// Reserver performs the synchronous reservation call. Implemented by
// ReservationClient; its resilience wrapper guarantees that technical
// failures come back as an ERROR-status response, not an error.
type Reserver interface {
	Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error)
}

// ProductReader resolves a product snapshot by SKU, from cache or remote.
// Implemented by CatalogClient.
type ProductReader interface {
	GetProductBySKU(ctx context.Context, sku string) (*models.ProductSnapshot, error)
}
