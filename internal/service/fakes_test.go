package service

import (
	"context"
	"errors"
	"sync"

	"retail-order-service/internal/models"
	"retail-order-service/internal/store"
)

// memStore is an in-memory OrderStore + ProcessedLedger for saga and sweep
// tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]*models.Order
	retries   map[int64]*models.OrderRetry
	processed map[string]bool

	failCreateOrder bool
	failGetOrder    bool
	failLedger      bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[int64]*models.Order),
		retries:   make(map[int64]*models.OrderRetry),
		processed: make(map[string]bool),
	}
}

func (m *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateOrder {
		return errors.New("db down")
	}
	m.nextID++
	order.ID = m.nextID
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGetOrder {
		return nil, errors.New("db down")
	}
	order, ok := m.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	return &cp, nil
}

func (m *memStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (m *memStore) CreateOrderRetry(_ context.Context, retry *models.OrderRetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	retry.ID = m.nextID
	cp := *retry
	m.retries[retry.ID] = &cp
	return nil
}

func (m *memStore) ListOrderRetries(_ context.Context) ([]models.OrderRetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.OrderRetry, 0, len(m.retries))
	for _, r := range m.retries {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) TouchOrderRetry(_ context.Context, retryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	retry, ok := m.retries[retryID]
	if !ok {
		return errors.New("retry not found")
	}
	retry.RetryCount++
	return nil
}

func (m *memStore) DeleteOrderRetry(_ context.Context, retryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.retries, retryID)
	return nil
}

func (m *memStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLedger {
		return false, errors.New("ledger down")
	}
	return m.processed[eventID], nil
}

func (m *memStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLedger {
		return errors.New("ledger down")
	}
	m.processed[eventID] = true
	return nil
}

// memCaches is an in-memory snapshot cache covering all three aggregate
// kinds.
type memCaches struct {
	mu         sync.Mutex
	products   map[string]*models.ProductSnapshot
	categories map[string]*models.CategorySnapshot
	inventory  map[string]*models.InventorySnapshot

	failReads bool
}

func newMemCaches() *memCaches {
	return &memCaches{
		products:   make(map[string]*models.ProductSnapshot),
		categories: make(map[string]*models.CategorySnapshot),
		inventory:  make(map[string]*models.InventorySnapshot),
	}
}

func (m *memCaches) GetProduct(_ context.Context, sku string) (*models.ProductSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, false, errors.New("cache down")
	}
	snap, ok := m.products[sku]
	if !ok {
		return nil, false, nil
	}
	cp := *snap
	return &cp, true, nil
}

func (m *memCaches) SaveProduct(_ context.Context, snap *models.ProductSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.products[snap.SKU] = &cp
	return nil
}

func (m *memCaches) GetCategory(_ context.Context, name string) (*models.CategorySnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, false, errors.New("cache down")
	}
	snap, ok := m.categories[name]
	if !ok {
		return nil, false, nil
	}
	cp := *snap
	return &cp, true, nil
}

func (m *memCaches) SaveCategory(_ context.Context, snap *models.CategorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.categories[snap.Name] = &cp
	return nil
}

func (m *memCaches) GetInventory(_ context.Context, sku string) (*models.InventorySnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, false, errors.New("cache down")
	}
	snap, ok := m.inventory[sku]
	if !ok {
		return nil, false, nil
	}
	cp := *snap
	return &cp, true, nil
}

func (m *memCaches) SaveInventory(_ context.Context, snap *models.InventorySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snap
	m.inventory[snap.ProductSKU] = &cp
	return nil
}

// fakeCatalog serves product snapshots straight from a map
type fakeCatalog struct {
	products map[string]*models.ProductSnapshot
	degraded bool
}

func (f *fakeCatalog) GetProductBySKU(_ context.Context, sku string) (*models.ProductSnapshot, error) {
	if f.degraded {
		return &models.ProductSnapshot{SKU: sku, Version: models.VersionServiceUnavailable}, nil
	}
	snap, ok := f.products[sku]
	if !ok {
		return nil, &ProductNotFoundError{SKU: sku}
	}
	return snap, nil
}

// fakeReserver returns a scripted sequence of responses
type fakeReserver struct {
	responses []*models.ReserveResponse
	calls     int
}

func (f *fakeReserver) Reserve(_ context.Context, _ *models.ReserveRequest) (*models.ReserveResponse, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return f.responses[idx], nil
}

type publishedEvent struct {
	topic        string
	eventType    string
	aggregateKey string
	payload      interface{}
}

// fakePublisher records published events
type fakePublisher struct {
	events []publishedEvent
	fail   bool
}

func (f *fakePublisher) Publish(_ context.Context, topic, eventType, aggregateKey string, payload interface{}) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, publishedEvent{topic, eventType, aggregateKey, payload})
	return nil
}
