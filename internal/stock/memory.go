package stock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a mutex-guarded ledger used by tests and the seeder dry-run
// mode. A single lock serializes commits, which is the same contract the
// Postgres store provides with row locks.
type MemoryStore struct {
	mu     sync.Mutex
	levels map[string]Level
}

// NewMemoryStore builds an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{levels: make(map[string]Level)}
}

// Put inserts or replaces a level.
func (s *MemoryStore) Put(lvl Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lvl.LowStockThreshold <= 0 {
		lvl.LowStockThreshold = DefaultLowStockThreshold
	}
	lvl.OutOfStock = lvl.Quantity == 0
	s.levels[lvl.SKU] = lvl
}

// Levels returns copies of the requested levels. Unknown SKUs are omitted.
func (s *MemoryStore) Levels(_ context.Context, skus []string) (map[string]Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Level, len(skus))
	for _, sku := range skus {
		if lvl, ok := s.levels[sku]; ok {
			out[sku] = lvl
		}
	}
	return out, nil
}

// ReserveAndDecrement applies Plan under the store lock. Either every request
// is satisfied or nothing changes.
func (s *MemoryStore) ReserveAndDecrement(_ context.Context, reqs []Request) ([]Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, signals, err := Plan(s.levels, reqs)
	if err != nil {
		return nil, err
	}
	for _, lvl := range next {
		s.levels[lvl.SKU] = lvl
	}
	return signals, nil
}

// Restock increments quantities and clears the out-of-stock flag where the
// quantity recovers above zero.
func (s *MemoryStore) Restock(_ context.Context, adds []Request) ([]Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range adds {
		if a.Qty <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, a.SKU)
		}
		if _, ok := s.levels[a.SKU]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSKU, a.SKU)
		}
	}
	out := make([]Level, 0, len(adds))
	for _, a := range adds {
		lvl := s.levels[a.SKU]
		lvl.Quantity += a.Qty
		lvl.OutOfStock = lvl.Quantity == 0
		s.levels[a.SKU] = lvl
		out = append(out, lvl)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
