package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"grocery-orders/models"
)

// Memory keeps orders in process. It has no transactions, so order creation
// through it goes down the compensating-delete path.
type Memory struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	items  map[string][]models.OrderItem

	// InsertItemsErr, when set, is returned by InsertItems without storing anything.
	InsertItemsErr error
	// DeleteErr, when set, is returned by DeleteOrder without deleting anything.
	DeleteErr error
}

func NewMemory() *Memory {
	return &Memory{
		orders: make(map[string]*models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

func (m *Memory) InsertOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return errors.New("duplicate order id")
	}
	for _, existing := range m.orders {
		if existing.OrderNumber == o.OrderNumber {
			return errors.New("duplicate order number")
		}
	}
	cp := *o
	cp.Items = nil
	m.orders[o.ID] = &cp
	return nil
}

func (m *Memory) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if m.InsertItemsErr != nil {
		return m.InsertItemsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if _, ok := m.orders[it.OrderID]; !ok {
			return errors.New("order_items: unknown order_id " + it.OrderID)
		}
	}
	for _, it := range items {
		m.items[it.OrderID] = append(m.items[it.OrderID], it)
	}
	return nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	delete(m.items, id)
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.withItems(o), nil
}

func (m *Memory) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OrderNumber == number {
			return m.withItems(o), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *m.withItems(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if matches(o, f) {
			out = append(out, *m.withItems(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

func (m *Memory) UpdateAdminNotes(ctx context.Context, id string, notes *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.AdminNotes = notes
	o.UpdatedAt = at
	return nil
}

// withItems returns a copy of o carrying its items. Callers hold m.mu.
func (m *Memory) withItems(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), m.items[o.ID]...)
	return &cp
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderNumber > orders[j].OrderNumber
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
