package supplier

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds suppliers and purchase orders in memory for tests.
type MemoryStore struct {
	mu        sync.Mutex
	suppliers map[uuid.UUID]Supplier
	orders    map[uuid.UUID]PurchaseOrder
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		suppliers: make(map[uuid.UUID]Supplier),
		orders:    make(map[uuid.UUID]PurchaseOrder),
	}
}

// InsertSupplier stores a supplier, assigning an id if absent.
func (s *MemoryStore) InsertSupplier(_ context.Context, sup Supplier) (Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup.ID == uuid.Nil {
		sup.ID = uuid.New()
	}
	s.suppliers[sup.ID] = sup
	return sup, nil
}

// ListSuppliers returns all stored suppliers.
func (s *MemoryStore) ListSuppliers(_ context.Context) ([]Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	return out, nil
}

// InsertOrder stores a purchase order.
func (s *MemoryStore) InsertOrder(_ context.Context, po PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[po.ID] = po
	return nil
}

// GetOrder fetches a purchase order by id.
func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrOrderNotFound
	}
	return po, nil
}

// UpdateOrderStatus applies a compare-and-swap status change.
func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if po.Status != from {
		return ErrInvalidOrderStatus
	}
	po.Status = to
	s.orders[id] = po
	return nil
}

// ListOrders returns orders, optionally filtered by status.
func (s *MemoryStore) ListOrders(_ context.Context, status *string, _, _ int32) ([]PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PurchaseOrder
	for _, po := range s.orders {
		if status != nil && string(po.Status) != *status {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
