package service

import (
	"errors"
	"fmt"

	"retail-order-service/internal/models"
)

// ErrCatalogUnavailable is returned when order enrichment would have to
// price from a degraded (sentinel-version) snapshot.
var ErrCatalogUnavailable = errors.New("catalog unavailable, cannot price order")

// ValidationError rejects a malformed order request before any side effect
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order request: " + e.Reason
}

// ProductNotFoundError marks a SKU the catalog owner does not know
type ProductNotFoundError struct {
	SKU string
}

func (e *ProductNotFoundError) Error() string {
	return "product not found: " + e.SKU
}

// ReservationRejectedError carries an explicit business denial from the
// inventory service. It is surfaced verbatim and never retried.
type ReservationRejectedError struct {
	Status  models.ReservationStatus
	Message string
}

func (e *ReservationRejectedError) Error() string {
	return fmt.Sprintf("reservation rejected (%s): %s", e.Status, e.Message)
}
