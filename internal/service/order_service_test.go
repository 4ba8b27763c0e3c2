package service

import (
	"context"
	"errors"
	"testing"

	"retail-order-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]*models.ProductSnapshot{
		"WIDGET-1": {SKU: "WIDGET-1", Name: "Widget", Price: 999, Version: 3},
		"GADGET-2": {SKU: "GADGET-2", Name: "Gadget", Price: 1999, Version: 5},
	}}
}

func successReserver() *fakeReserver {
	return &fakeReserver{responses: []*models.ReserveResponse{
		{Success: true, Status: models.ReservationSuccess},
	}}
}

func newTestOrderService(st *memStore, catalog ProductReader, reserver Reserver, pub *fakePublisher) *OrderService {
	return NewOrderService(st, catalog, reserver, pub, "order-events")
}

func TestCreateOrderConfirmed(t *testing.T) {
	st := newMemStore()
	pub := &fakePublisher{}
	svc := newTestOrderService(st, testCatalog(), successReserver(), pub)

	order, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-42",
		Items: []OrderItemRequest{
			{SKU: "WIDGET-1", Quantity: 2},
			{SKU: "GADGET-2", Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.NotZero(t, order.ID)

	// 2 x 9.99 + 3 x 19.99, in cents, with no rounding drift
	assert.Equal(t, int64(2*999+3*1999), order.Total)
	assert.Equal(t, int64(7995), order.Total)

	// unit prices were captured from the snapshots
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(999), order.Items[0].UnitPrice)
	assert.Equal(t, int64(1999), order.Items[1].UnitPrice)

	// exactly one order-created event, keyed by the order aggregate
	require.Len(t, pub.events, 1)
	assert.Equal(t, "order-events", pub.events[0].topic)
	assert.Equal(t, models.EventTypeOrderCreated, pub.events[0].eventType)
	assert.Equal(t, "order-1", pub.events[0].aggregateKey)

	payload, ok := pub.events[0].payload.(*models.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, payload.OrderID)
	assert.Equal(t, int64(7995), payload.Total)
}

func TestCreateOrderValidation(t *testing.T) {
	st := newMemStore()
	svc := newTestOrderService(st, testCatalog(), successReserver(), &fakePublisher{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  *OrderRequest
	}{
		{"no items", &OrderRequest{CustomerID: "cust-1"}},
		{"blank sku", &OrderRequest{CustomerID: "cust-1", Items: []OrderItemRequest{{SKU: "  ", Quantity: 1}}}},
		{"zero quantity", &OrderRequest{CustomerID: "cust-1", Items: []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 0}}}},
		{"negative quantity", &OrderRequest{CustomerID: "cust-1", Items: []OrderItemRequest{{SKU: "WIDGET-1", Quantity: -2}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tc.req)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	assert.Empty(t, st.orders, "rejected requests must leave no order behind")
}

func TestCreateOrderUnknownSKU(t *testing.T) {
	st := newMemStore()
	svc := newTestOrderService(st, testCatalog(), successReserver(), &fakePublisher{})

	_, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "NOPE-9", Quantity: 1}},
	})

	var nf *ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "NOPE-9", nf.SKU)
	assert.Empty(t, st.orders)
}

func TestCreateOrderCatalogDegraded(t *testing.T) {
	st := newMemStore()
	pub := &fakePublisher{}
	catalog := &fakeCatalog{degraded: true}
	svc := newTestOrderService(st, catalog, successReserver(), pub)

	_, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
	})

	// a sentinel snapshot must never price an order
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Empty(t, st.orders)
	assert.Empty(t, pub.events)
}

func TestCreateOrderBusinessRejection(t *testing.T) {
	for _, status := range []models.ReservationStatus{
		models.ReservationInsufficientStock,
		models.ReservationOutOfStock,
		models.ReservationDiscontinued,
	} {
		t.Run(string(status), func(t *testing.T) {
			st := newMemStore()
			pub := &fakePublisher{}
			reserver := &fakeReserver{responses: []*models.ReserveResponse{
				{Success: false, Status: status, Message: "no can do"},
			}}
			svc := newTestOrderService(st, testCatalog(), reserver, pub)

			_, err := svc.CreateOrder(context.Background(), &OrderRequest{
				CustomerID: "cust-1",
				Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
			})

			var rejected *ReservationRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, status, rejected.Status)

			// a definitive denial is final: no order, no retry, no event
			assert.Empty(t, st.orders)
			assert.Empty(t, st.retries)
			assert.Empty(t, pub.events)
		})
	}
}

func TestCreateOrderTechnicalFailureDefers(t *testing.T) {
	st := newMemStore()
	pub := &fakePublisher{}
	reserver := &fakeReserver{responses: []*models.ReserveResponse{
		{Success: false, Status: models.ReservationError, Message: "inventory service unavailable"},
	}}
	svc := newTestOrderService(st, testCatalog(), reserver, pub)

	order, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPendingRetry, order.Status)
	assert.Equal(t, int64(1998), order.Total)

	// exactly one retry record pointing at the deferred order
	require.Len(t, st.retries, 1)
	for _, retry := range st.retries {
		assert.Equal(t, order.ID, retry.OrderID)
		assert.Zero(t, retry.RetryCount)
	}

	// no order-created event until the order confirms
	assert.Empty(t, pub.events)
}

func TestCreateOrderReserverErrorDefers(t *testing.T) {
	st := newMemStore()
	pub := &fakePublisher{}
	svc := newTestOrderService(st, testCatalog(), &erroringReserver{}, pub)

	order, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPendingRetry, order.Status)
	assert.Len(t, st.retries, 1)
	assert.Empty(t, pub.events)
}

func TestCreateOrderPublishFailureKeepsOrder(t *testing.T) {
	st := newMemStore()
	pub := &fakePublisher{fail: true}
	svc := newTestOrderService(st, testCatalog(), successReserver(), pub)

	order, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
	})

	// the local write is the source of truth; a lost event never fails it
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	stored, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestCreateOrderStoreFailure(t *testing.T) {
	st := newMemStore()
	st.failCreateOrder = true
	pub := &fakePublisher{}
	svc := newTestOrderService(st, testCatalog(), successReserver(), pub)

	_, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Empty(t, pub.events, "no event without a persisted order")
}

func TestGetOrder(t *testing.T) {
	st := newMemStore()
	svc := newTestOrderService(st, testCatalog(), successReserver(), &fakePublisher{})

	created, err := svc.CreateOrder(context.Background(), &OrderRequest{
		CustomerID: "cust-1",
		Items:      []OrderItemRequest{{SKU: "WIDGET-1", Quantity: 1}},
	})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Items, 1)
}

// erroringReserver simulates a reserver whose resilience wrapper failed to
// absorb the error
type erroringReserver struct{}

func (e *erroringReserver) Reserve(context.Context, *models.ReserveRequest) (*models.ReserveResponse, error) {
	return nil, errors.New("wrapper bypassed")
}
