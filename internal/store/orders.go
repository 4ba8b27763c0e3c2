package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"retail-order-service/internal/models"
)

// ErrOrderNotFound is returned when an order id resolves to nothing
var ErrOrderNotFound = errors.New("order not found")

// CreateOrder persists an order and its items in one transaction. The items
// are owned by the order; their OrderID fields are filled in on success.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (customer_id, total, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		order.CustomerID, order.Total, order.Status)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, sku, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			item.OrderID, item.SKU, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.SKU, err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order with its items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT id, customer_id, total, status, created_at FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	return err
}

// CreateOrderRetry enqueues a deferred order for the retry sweep
func (s *Store) CreateOrderRetry(ctx context.Context, retry *models.OrderRetry) error {
	return s.db.GetContext(ctx, retry, `
		INSERT INTO order_retries (order_id, retry_count, created_at, last_attempted_at)
		VALUES ($1, 0, NOW(), NOW())
		RETURNING id, retry_count, created_at, last_attempted_at`,
		retry.OrderID)
}

// ListOrderRetries returns all pending retries, oldest first
func (s *Store) ListOrderRetries(ctx context.Context) ([]models.OrderRetry, error) {
	var retries []models.OrderRetry
	err := s.db.SelectContext(ctx, &retries,
		"SELECT * FROM order_retries ORDER BY created_at")
	return retries, err
}

// TouchOrderRetry increments the attempt counter and stamps the attempt time
func (s *Store) TouchOrderRetry(ctx context.Context, retryID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE order_retries SET retry_count = retry_count + 1, last_attempted_at = NOW() WHERE id = $1",
		retryID)
	return err
}

// DeleteOrderRetry removes a retry record
func (s *Store) DeleteOrderRetry(ctx context.Context, retryID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM order_retries WHERE id = $1", retryID)
	return err
}
