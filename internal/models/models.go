package models

import "time"

// Order represents a customer order
type Order struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	Total      int64     `db:"total" json:"total"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Items      []OrderItem `db:"-" json:"items"`
}

// OrderItem represents an item in an order. UnitPrice is captured from the
// product snapshot at order-creation time and never changes afterwards.
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	SKU       string `db:"sku" json:"sku"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// OrderRetry is a deferred reservation waiting for the retry sweep
type OrderRetry struct {
	ID              int64     `db:"id" json:"id"`
	OrderID         int64     `db:"order_id" json:"order_id"`
	RetryCount      int       `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	LastAttemptedAt time.Time `db:"last_attempted_at" json:"last_attempted_at"`
}

// Order statuses. PENDING_RETRY may move to CONFIRMED (retry success) or
// FAILED (retry budget exhausted), never the reverse.
const (
	OrderStatusConfirmed    = "CONFIRMED"
	OrderStatusPendingRetry = "PENDING_RETRY"
	OrderStatusFailed       = "FAILED"
)

// ReservationStatus is the closed set of outcomes the inventory service
// returns for a reservation attempt.
type ReservationStatus string

const (
	ReservationSuccess           ReservationStatus = "SUCCESS"
	ReservationInsufficientStock ReservationStatus = "INSUFFICIENT_STOCK"
	ReservationOutOfStock        ReservationStatus = "OUT_OF_STOCK"
	ReservationDiscontinued      ReservationStatus = "DISCONTINUED"
	ReservationError             ReservationStatus = "ERROR"
)

// BusinessRejection reports whether the status is an explicit domain denial,
// as opposed to a technical failure that may be retried.
func (s ReservationStatus) BusinessRejection() bool {
	switch s {
	case ReservationInsufficientStock, ReservationOutOfStock, ReservationDiscontinued:
		return true
	}
	return false
}

// ReserveRequest is the payload of the synchronous reservation call
type ReserveRequest struct {
	Items []ReserveItem `json:"items"`
}

// ReserveItem identifies one line of a reservation
type ReserveItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// ReserveResponse is the inventory service's answer to a reservation
type ReserveResponse struct {
	Success bool              `json:"success"`
	Status  ReservationStatus `json:"status"`
	Message string            `json:"message"`
}

// ProcessedEvent records an event id that has been durably applied
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// VersionLedgerEntry is one row of the per-aggregate version counter
type VersionLedgerEntry struct {
	AggregateKey string `db:"aggregate_key"`
	Version      int64  `db:"version"`
}
