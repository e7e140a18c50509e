package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/somethingsbrewing/storefront-api/internal/catalog"
	"github.com/somethingsbrewing/storefront-api/internal/emails"
	"github.com/somethingsbrewing/storefront-api/internal/payments"
)

// mockStore keeps order state in maps so compensation and idempotency can be
// asserted against what a real store would contain afterwards.
type mockStore struct {
	orders   map[string]*Order
	items    map[string][]OrderItem
	tracking map[string][]TrackingEvent

	insertOrderErr error
	insertItemsErr error
	settleErr      error

	calls []string
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:   map[string]*Order{},
		items:    map[string][]OrderItem{},
		tracking: map[string][]TrackingEvent{},
	}
}

func (m *mockStore) InsertOrder(_ context.Context, o *Order) error {
	m.calls = append(m.calls, "InsertOrder")
	if m.insertOrderErr != nil {
		return m.insertOrderErr
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockStore) InsertItems(_ context.Context, orderID string, items []OrderItem) error {
	m.calls = append(m.calls, "InsertItems")
	if m.insertItemsErr != nil {
		return m.insertItemsErr
	}
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
	m.items[orderID] = append([]OrderItem(nil), items...)
	return nil
}

func (m *mockStore) DeleteItems(_ context.Context, orderID string) error {
	m.calls = append(m.calls, "DeleteItems")
	delete(m.items, orderID)
	return nil
}

func (m *mockStore) DeleteOrder(_ context.Context, id string) error {
	m.calls = append(m.calls, "DeleteOrder")
	delete(m.orders, id)
	return nil
}

func (m *mockStore) GetOrder(_ context.Context, id string) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (m *mockStore) ItemsByOrder(_ context.Context, orderID string) ([]OrderItem, error) {
	return m.items[orderID], nil
}

func (m *mockStore) ListOrders(_ context.Context, f ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockStore) Settle(_ context.Context, id string, to Status) (bool, error) {
	m.calls = append(m.calls, "Settle")
	if m.settleErr != nil {
		return false, m.settleErr
	}
	o, ok := m.orders[id]
	if !ok || o.Status != StatusPending {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockStore) AppendTracking(_ context.Context, ev *TrackingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = time.Now()
	m.tracking[ev.OrderID] = append(m.tracking[ev.OrderID], *ev)
	return nil
}

func (m *mockStore) TrackingHistory(_ context.Context, orderID string) ([]TrackingEvent, error) {
	return m.tracking[orderID], nil
}

func (m *mockStore) UpdateTrackingFields(_ context.Context, orderID string, status Status, trackingNumber, carrier string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	if carrier != "" {
		o.ShippingCarrier = carrier
	}
	return nil
}

// mockCatalog is both the catalog reader and the stock ledger.
type mockCatalog struct {
	products map[string]*catalog.Product

	decrementErr error
	incrementErr error
	decrements   []ItemQty
	increments   []ItemQty
}

func newMockCatalog(ps ...catalog.Product) *mockCatalog {
	m := &mockCatalog{products: map[string]*catalog.Product{}}
	for i := range ps {
		p := ps[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *mockCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return *p, nil
}

func (m *mockCatalog) DecrementStock(_ context.Context, id string, qty int64) (bool, error) {
	if m.decrementErr != nil {
		return false, m.decrementErr
	}
	p, ok := m.products[id]
	if !ok || p.Stock == nil || *p.Stock < qty {
		return false, nil
	}
	*p.Stock -= qty
	m.decrements = append(m.decrements, ItemQty{ProductID: id, Qty: qty})
	return true, nil
}

func (m *mockCatalog) IncrementStock(_ context.Context, id string, qty int64) (bool, error) {
	if m.incrementErr != nil {
		return false, m.incrementErr
	}
	p, ok := m.products[id]
	if !ok || p.Stock == nil {
		return false, nil
	}
	*p.Stock += qty
	m.increments = append(m.increments, ItemQty{ProductID: id, Qty: qty})
	return true, nil
}

type mockGateway struct {
	intent payments.Intent
	err    error
	reqs   []payments.IntentRequest
}

func (m *mockGateway) CreateIntent(_ context.Context, req payments.IntentRequest) (payments.Intent, error) {
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return payments.Intent{}, m.err
	}
	return m.intent, nil
}

type mockEmailQueue struct {
	jobs []emails.Job
	err  error
}

func (m *mockEmailQueue) Enqueue(_ context.Context, job emails.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockPublisher struct {
	topics []string
}

func (m *mockPublisher) Publish(topic string, _, _ []byte, _ ...kafka.Header) {
	m.topics = append(m.topics, topic)
}

var errBoom = errors.New("boom")

func int64ptr(v int64) *int64 { return &v }
