package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

type memoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

// NewMemoryStore returns a process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{orders: make(map[uuid.UUID]Order)}
}

func (m *memoryStore) Insert(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return apperr.Conflict("order %s already exists", order.ID)
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order %s", id)
	}
	return &o, nil
}

func (m *memoryStore) List(_ context.Context, scope visibility.OrderScope, filter Filter) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Order{}
	for _, o := range m.orders {
		if !scope.Allows(o.UserEmail, o.BookID) {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) Transition(_ context.Context, id uuid.UUID, t Transition, scope *visibility.OrderScope, now time.Time) (*Order, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, "", apperr.NotFound("order %s", id)
	}
	if scope != nil && !scope.Allows(o.UserEmail, o.BookID) {
		return nil, "", apperr.NotFound("order %s", id)
	}
	if !t.Allows(o.Status) {
		return nil, "", classifyMiss(&o, nil, id, t, nil)
	}
	previous := o.Status
	if t.NoOp(previous) {
		return &o, previous, nil
	}
	o.Status = t.To
	o.UpdatedAt = now
	m.orders[id] = o
	return &o, previous, nil
}

func (m *memoryStore) SetPaymentStatus(_ context.Context, id uuid.UUID, ps PaymentStatus, now time.Time) (*Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, false, apperr.NotFound("order %s", id)
	}
	if o.PaymentStatus == ps {
		return &o, false, nil
	}
	o.PaymentStatus = ps
	o.UpdatedAt = now
	m.orders[id] = o
	return &o, true, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }
