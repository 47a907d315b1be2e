package sale

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore holds transactions in memory for tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	txns map[uuid.UUID]Transaction
}

// NewMemoryStore builds an empty transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txns: make(map[uuid.UUID]Transaction)}
}

// InsertTransaction stores a new transaction.
func (s *MemoryStore) InsertTransaction(_ context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
	return nil
}

// GetTransaction fetches a transaction by id.
func (s *MemoryStore) GetTransaction(_ context.Context, id uuid.UUID) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return txn, nil
}

// UpdateStatus moves a stored transaction to the given status. The from
// status acts as a compare-and-swap guard.
func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return ErrNotFound
	}
	if txn.Status != from {
		return ErrInvalidTransition
	}
	txn.Status = to
	s.txns[id] = txn
	return nil
}

// List returns stored transactions newest first, optionally narrowed by status.
func (s *MemoryStore) List(_ context.Context, status *string, limit, offset int32) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, 0, len(s.txns))
	for _, txn := range s.txns {
		if status != nil && string(txn.Status) != *status {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
