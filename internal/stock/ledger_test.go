package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func seeded() *MemoryStore {
	s := NewMemoryStore()
	s.Put(Level{SKU: "A", Quantity: 5})
	s.Put(Level{SKU: "B", Quantity: 5})
	return s
}

func TestReserveAllOrNothing(t *testing.T) {
	s := seeded()
	_, err := s.ReserveAndDecrement(context.Background(), []Request{
		{SKU: "A", Qty: 3},
		{SKU: "B", Qty: 10},
	})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.SKU != "B" || insufficient.Requested != 10 || insufficient.Available != 5 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	levels, err := s.Levels(context.Background(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if levels["A"].Quantity != 5 || levels["B"].Quantity != 5 {
		t.Fatalf("failed reserve must not mutate: A=%d B=%d", levels["A"].Quantity, levels["B"].Quantity)
	}
}

func TestReserveAggregatesDuplicateSKUs(t *testing.T) {
	s := seeded()
	_, err := s.ReserveAndDecrement(context.Background(), []Request{
		{SKU: "A", Qty: 3},
		{SKU: "A", Qty: 3},
	})
	if !IsInsufficientStock(err) {
		t.Fatalf("duplicate lines summing past availability must fail, got %v", err)
	}
}

func TestReserveSignals(t *testing.T) {
	s := NewMemoryStore()
	s.Put(Level{SKU: "A", Quantity: 8, LowStockThreshold: 5})
	s.Put(Level{SKU: "B", Quantity: 2, LowStockThreshold: 5})

	signals, err := s.ReserveAndDecrement(context.Background(), []Request{
		{SKU: "A", Qty: 4},
		{SKU: "B", Qty: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	bySKU := map[string]Signal{}
	for _, sig := range signals {
		bySKU[sig.SKU] = sig
	}
	if bySKU["A"].Kind != SignalLow || bySKU["A"].Quantity != 4 {
		t.Fatalf("expected low signal for A at qty 4, got %+v", bySKU["A"])
	}
	if bySKU["B"].Kind != SignalOut || bySKU["B"].Quantity != 0 {
		t.Fatalf("expected out signal for B, got %+v", bySKU["B"])
	}

	levels, _ := s.Levels(context.Background(), []string{"B"})
	if !levels["B"].OutOfStock {
		t.Fatalf("B should be flagged out of stock")
	}
}

func TestReserveUnknownSKU(t *testing.T) {
	s := seeded()
	_, err := s.ReserveAndDecrement(context.Background(), []Request{{SKU: "Z", Qty: 1}})
	if !errors.Is(err, ErrUnknownSKU) {
		t.Fatalf("expected ErrUnknownSKU, got %v", err)
	}
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	s := seeded()
	_, err := s.ReserveAndDecrement(context.Background(), []Request{{SKU: "A", Qty: 0}})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestRestockClearsOutOfStock(t *testing.T) {
	s := NewMemoryStore()
	s.Put(Level{SKU: "A", Quantity: 1})
	if _, err := s.ReserveAndDecrement(context.Background(), []Request{{SKU: "A", Qty: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	levels, _ := s.Restock(context.Background(), []Request{{SKU: "A", Qty: 10}})
	if len(levels) != 1 || levels[0].Quantity != 11 || levels[0].OutOfStock {
		t.Fatalf("restock should restore quantity and clear the flag: %+v", levels)
	}
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	s := NewMemoryStore()
	s.Put(Level{SKU: "A", Quantity: 50})

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ReserveAndDecrement(context.Background(), []Request{{SKU: "A", Qty: 1}})
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
				return
			}
			if !IsInsufficientStock(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	levels, _ := s.Levels(context.Background(), []string{"A"})
	if committed != 50 {
		t.Fatalf("expected exactly 50 commits, got %d", committed)
	}
	if levels["A"].Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", levels["A"].Quantity)
	}
}
