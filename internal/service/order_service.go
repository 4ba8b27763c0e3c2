package service

import (
	"context"
	"fmt"
	"strings"

	"retail-order-service/internal/models"
	"retail-order-service/internal/util"

	"go.uber.org/zap"
)

// OrderService runs the order-creation saga: validate, enrich from product
// snapshots, reserve stock, then persist the order as CONFIRMED or defer it
// as PENDING_RETRY. Business rejections and validation failures leave no
// state behind; technical reservation failures always leave a durable
// deferred order plus a retry record.
type OrderService struct {
	store      OrderStore
	catalog    ProductReader
	reserver   Reserver
	publisher  Publisher
	orderTopic string
	logger     *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, catalog ProductReader, reserver Reserver, publisher Publisher, orderTopic string) *OrderService {
	return &OrderService{
		store:      store,
		catalog:    catalog,
		reserver:   reserver,
		publisher:  publisher,
		orderTopic: orderTopic,
		logger:     util.GetLogger(),
	}
}

// OrderRequest is the order creation entry point payload
type OrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Items      []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one requested line
type OrderItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func validate(req *OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return &ValidationError{Reason: "order has no items"}
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.SKU) == "" {
			return &ValidationError{Reason: "item is missing a sku"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("invalid quantity for %s: %d", item.SKU, item.Quantity)}
		}
	}
	return nil
}

func orderTotal(items []models.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// CreateOrder runs the saga for one request
func (s *OrderService) CreateOrder(ctx context.Context, req *OrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validate(req); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	items, err := s.enrich(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	res, err := s.reserver.Reserve(ctx, reserveRequest(items))
	if err != nil {
		// the wrapper's fallback normally absorbs technical failures;
		// a raw error here still defers rather than losing the order
		s.logger.Error("Reservation call errored outside wrapper", zap.Error(err))
		res = &models.ReserveResponse{Status: models.ReservationError, Message: err.Error()}
	}

	switch res.Status {
	case models.ReservationSuccess:
		return s.confirm(ctx, req.CustomerID, items)

	case models.ReservationInsufficientStock, models.ReservationOutOfStock, models.ReservationDiscontinued:
		util.OrdersRejectedTotal.WithLabelValues(strings.ToLower(string(res.Status))).Inc()
		s.logger.Info("Reservation rejected",
			zap.String("status", string(res.Status)),
			zap.String("message", res.Message))
		return nil, &ReservationRejectedError{Status: res.Status, Message: res.Message}

	default:
		// ERROR or unrecognized: durable deferral
		return s.deferOrder(ctx, req.CustomerID, items, res.Message)
	}
}

// enrich resolves each requested SKU to a product snapshot and captures the
// unit price at this instant. A sentinel-version snapshot means the catalog
// is unreachable with nothing cached; pricing from it is refused.
func (s *OrderService) enrich(ctx context.Context, reqItems []OrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqItems))
	for _, ri := range reqItems {
		snap, err := s.catalog.GetProductBySKU(ctx, ri.SKU)
		if err != nil {
			return nil, err
		}
		if snap.Degraded() {
			util.OrdersRejectedTotal.WithLabelValues("catalog_unavailable").Inc()
			return nil, fmt.Errorf("%w: %s", ErrCatalogUnavailable, ri.SKU)
		}
		items = append(items, models.OrderItem{
			SKU:       snap.SKU,
			Quantity:  ri.Quantity,
			UnitPrice: snap.Price,
		})
	}
	return items, nil
}

func (s *OrderService) confirm(ctx context.Context, customerID string, items []models.OrderItem) (*models.Order, error) {
	order := &models.Order{
		CustomerID: customerID,
		Total:      orderTotal(items),
		Status:     models.OrderStatusConfirmed,
		Items:      items,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist confirmed order: %w", err)
	}

	util.OrdersConfirmedTotal.Inc()
	s.logger.Info("Order confirmed", zap.Int64("order_id", order.ID), zap.Int64("total", order.Total))

	publishOrderCreated(ctx, s.publisher, s.orderTopic, order, s.logger)
	return order, nil
}

func (s *OrderService) deferOrder(ctx context.Context, customerID string, items []models.OrderItem, reason string) (*models.Order, error) {
	order := &models.Order{
		CustomerID: customerID,
		Total:      orderTotal(items),
		Status:     models.OrderStatusPendingRetry,
		Items:      items,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist deferred order: %w", err)
	}

	retry := &models.OrderRetry{OrderID: order.ID}
	if err := s.store.CreateOrderRetry(ctx, retry); err != nil {
		// the order is the durable record; a missing retry row is repairable
		s.logger.Error("Failed to enqueue order retry",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}

	util.OrdersDeferredTotal.Inc()
	s.logger.Warn("Order deferred for retry",
		zap.Int64("order_id", order.ID),
		zap.String("reason", reason))

	// no order-created event until the order confirms
	return order, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

func reserveRequest(items []models.OrderItem) *models.ReserveRequest {
	req := &models.ReserveRequest{Items: make([]models.ReserveItem, 0, len(items))}
	for _, item := range items {
		req.Items = append(req.Items, models.ReserveItem{SKU: item.SKU, Quantity: item.Quantity})
	}
	return req
}

// publishOrderCreated emits the order-created event keyed by order id.
// Publish failures after a successful write are logged and counted, never
// rolled back; the inconsistency window closes on the next successful
// publish for the aggregate or by reconciliation.
func publishOrderCreated(ctx context.Context, publisher Publisher, topic string, order *models.Order, logger *zap.Logger) {
	key := fmt.Sprintf("order-%d", order.ID)
	event := models.NewOrderCreatedEvent(order)
	if err := publisher.Publish(ctx, topic, models.EventTypeOrderCreated, key, event); err != nil {
		util.EventPublishFailures.WithLabelValues(models.EventTypeOrderCreated).Inc()
		logger.Error("Failed to publish order-created event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}
