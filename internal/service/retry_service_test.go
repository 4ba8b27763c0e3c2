package service

import (
	"context"
	"testing"

	"retail-order-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deferOrderForTest(t *testing.T, st *memStore) (*models.Order, *models.OrderRetry) {
	t.Helper()

	order := &models.Order{
		CustomerID: "cust-1",
		Total:      1998,
		Status:     models.OrderStatusPendingRetry,
		Items:      []models.OrderItem{{SKU: "WIDGET-1", Quantity: 2, UnitPrice: 999}},
	}
	require.NoError(t, st.CreateOrder(context.Background(), order))

	retry := &models.OrderRetry{OrderID: order.ID}
	require.NoError(t, st.CreateOrderRetry(context.Background(), retry))
	return order, retry
}

func TestRetrySweepConfirmsOnSuccess(t *testing.T) {
	st := newMemStore()
	order, _ := deferOrderForTest(t, st)
	pub := &fakePublisher{}
	rs := NewRetryService(st, successReserver(), pub, "order-events", 10)

	rs.ProcessRetries(context.Background())

	stored, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)

	// the retry entry is gone and the delayed event finally went out
	assert.Empty(t, st.retries)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventTypeOrderCreated, pub.events[0].eventType)
}

func TestRetrySweepKeepsRetryOnFailure(t *testing.T) {
	st := newMemStore()
	order, retry := deferOrderForTest(t, st)
	pub := &fakePublisher{}
	reserver := &fakeReserver{responses: []*models.ReserveResponse{
		{Success: false, Status: models.ReservationError, Message: "still down"},
	}}
	rs := NewRetryService(st, reserver, pub, "order-events", 10)

	rs.ProcessRetries(context.Background())

	stored, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingRetry, stored.Status)

	require.Len(t, st.retries, 1)
	assert.Equal(t, 1, st.retries[retry.ID].RetryCount)
	assert.Empty(t, pub.events)
}

func TestRetrySweepDeadLettersAtBudget(t *testing.T) {
	st := newMemStore()
	order, retry := deferOrderForTest(t, st)
	st.retries[retry.ID].RetryCount = 3

	pub := &fakePublisher{}
	rs := NewRetryService(st, successReserver(), pub, "order-events", 3)

	rs.ProcessRetries(context.Background())

	stored, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, stored.Status)

	// dead-lettered orders leave the queue and emit nothing
	assert.Empty(t, st.retries)
	assert.Empty(t, pub.events)
}

func TestRetrySweepDeletesOrphans(t *testing.T) {
	st := newMemStore()
	orphan := &models.OrderRetry{OrderID: 9999}
	require.NoError(t, st.CreateOrderRetry(context.Background(), orphan))

	// a healthy entry behind the orphan must still be processed
	order, _ := deferOrderForTest(t, st)

	rs := NewRetryService(st, successReserver(), &fakePublisher{}, "order-events", 10)
	rs.ProcessRetries(context.Background())

	assert.Empty(t, st.retries, "orphan removed and healthy entry completed")

	stored, err := st.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestRetrySweepCleansUpAlreadyConfirmed(t *testing.T) {
	st := newMemStore()
	order, _ := deferOrderForTest(t, st)
	require.NoError(t, st.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusConfirmed))

	pub := &fakePublisher{}
	reserver := &fakeReserver{responses: []*models.ReserveResponse{
		{Success: true, Status: models.ReservationSuccess},
	}}
	rs := NewRetryService(st, reserver, pub, "order-events", 10)

	rs.ProcessRetries(context.Background())

	// no re-reservation, no duplicate event, entry removed
	assert.Zero(t, reserver.calls)
	assert.Empty(t, pub.events)
	assert.Empty(t, st.retries)
}

func TestRetrySweepSurvivesLoadErrors(t *testing.T) {
	st := newMemStore()
	_, retry := deferOrderForTest(t, st)
	st.failGetOrder = true

	rs := NewRetryService(st, successReserver(), &fakePublisher{}, "order-events", 10)
	rs.ProcessRetries(context.Background())

	// a transient load error keeps the entry and burns an attempt
	require.Len(t, st.retries, 1)
	assert.Equal(t, 1, st.retries[retry.ID].RetryCount)
}
