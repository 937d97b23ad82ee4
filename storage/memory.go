package storage

import (
	"context"
	"sync"

	"github.com/yeremiapane/fnb-kiosk/models"
)

// MemoryStore is the last-resort backend. It is empty at process start and
// everything in it is lost when the process stops.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []*models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Volatile() bool { return true }

func (m *MemoryStore) IsAvailable(context.Context) bool { return true }

func (m *MemoryStore) MarkUnavailable(error) {}

func (m *MemoryStore) indexOf(orderID string) int {
	for i, o := range m.orders {
		if o.OrderID == orderID {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) Save(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(order.OrderID) >= 0 {
		return ErrDuplicateID
	}
	m.orders = append(m.orders, order.Clone())
	return nil
}

func (m *MemoryStore) Find(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(orderID)
	if i < 0 {
		return nil, ErrNotFound
	}
	return m.orders[i].Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(order.OrderID)
	if i < 0 {
		return ErrNotFound
	}
	m.orders[i] = order.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(orderID)
	if i < 0 {
		return ErrNotFound
	}
	m.orders = append(m.orders[:i], m.orders[i+1:]...)
	return nil
}

func (m *MemoryStore) List(context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Clear(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.orders))
	m.orders = nil
	return n, nil
}
