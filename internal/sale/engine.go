package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/events"
	"github.com/jobelinc/stocktrack/internal/money"
	"github.com/jobelinc/stocktrack/internal/pricing"
	"github.com/jobelinc/stocktrack/internal/stock"
)

var (
	// ErrEmptyBasket is returned when a commit carries no lines.
	ErrEmptyBasket = errors.New("basket is empty")
	// ErrNotFound is returned when a transaction id does not exist.
	ErrNotFound = errors.New("transaction not found")
)

// BasketLine is one requested line before pricing: a SKU and a quantity.
type BasketLine struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Transaction is a committed sale with its priced lines and totals. Lines
// carry the snapshot prices captured at commit time; later catalog edits do
// not touch them.
type Transaction struct {
	ID         uuid.UUID
	Status     Status
	Lines      []pricing.Line
	TaxPercent decimal.Decimal
	Subtotal   money.Money
	Tax        money.Money
	Total      money.Money
	Tendered   money.Money
	Change     money.Money
	Profit     money.Money
	CreatedAt  time.Time
}

// SnapshotSource captures catalog terms for a set of SKUs. The read happens
// once per commit; the returned snapshots are the prices of record.
type SnapshotSource interface {
	Snapshots(ctx context.Context, skus []string) (map[string]pricing.Snapshot, error)
}

// Store persists transactions.
type Store interface {
	InsertTransaction(ctx context.Context, txn Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

// Atomic runs fn inside one atomic persistence scope. Every store write made
// through the scoped context commits together or not at all.
type Atomic interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopAtomic satisfies Atomic without transactional backing. The in-memory
// stores are individually consistent, which is enough for tests.
type NopAtomic struct{}

// Run executes fn directly.
func (NopAtomic) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Engine commits sales and advances transaction status.
type Engine struct {
	Snapshots SnapshotSource
	Stock     stock.Store
	Store     Store
	Atomic    Atomic
	Events    *events.Bus
	Now       func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// CommitTransaction prices the basket against a single catalog snapshot,
// decrements stock all-or-nothing, and persists the transaction with its
// lines in one atomic scope. Any failure leaves no partial state.
func (e *Engine) CommitTransaction(ctx context.Context, basket []BasketLine, taxPercent decimal.Decimal, tendered money.Money) (Transaction, error) {
	if e == nil || e.Snapshots == nil || e.Stock == nil || e.Store == nil || e.Atomic == nil {
		return Transaction{}, errors.New("sale engine not configured")
	}
	if len(basket) == 0 {
		return Transaction{}, ErrEmptyBasket
	}
	skus := make([]string, 0, len(basket))
	reqs := make([]stock.Request, 0, len(basket))
	for _, bl := range basket {
		if bl.Qty <= 0 {
			return Transaction{}, fmt.Errorf("%w: %s", pricing.ErrInvalidQuantity, bl.SKU)
		}
		skus = append(skus, bl.SKU)
		reqs = append(reqs, stock.Request{SKU: bl.SKU, Qty: bl.Qty})
	}
	stock.SortSKUs(skus)

	var txn Transaction
	var signals []stock.Signal
	err := e.Atomic.Run(ctx, func(ctx context.Context) error {
		snaps, err := e.Snapshots.Snapshots(ctx, skus)
		if err != nil {
			return err
		}
		for _, sku := range skus {
			if _, ok := snaps[sku]; !ok {
				return fmt.Errorf("%w: %s", stock.ErrUnknownSKU, sku)
			}
		}

		signals, err = e.Stock.ReserveAndDecrement(ctx, reqs)
		if err != nil {
			return err
		}

		lines := make([]pricing.Line, 0, len(basket))
		for _, bl := range basket {
			ln, err := pricing.PriceLine(snaps[bl.SKU], bl.Qty)
			if err != nil {
				return err
			}
			lines = append(lines, ln)
		}
		summary, err := pricing.Compute(lines, taxPercent, tendered)
		if err != nil {
			return err
		}

		txn = Transaction{
			ID:         uuid.New(),
			Status:     StatusPending,
			Lines:      lines,
			TaxPercent: taxPercent,
			Subtotal:   summary.Subtotal,
			Tax:        summary.Tax,
			Total:      summary.Total,
			Tendered:   tendered,
			Change:     summary.Change,
			Profit:     summary.Profit,
			CreatedAt:  e.now(),
		}
		return e.Store.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return Transaction{}, err
	}

	if e.Events != nil {
		_, _ = e.Events.Emit(ctx, events.TopicSaleCommitted, txn.ID, map[string]any{
			"saleId": txn.ID.String(),
			"total":  money.String(txn.Total),
			"lines":  len(txn.Lines),
		})
		_, _ = e.Events.Emit(ctx, events.TopicOrderCreated, txn.ID, map[string]any{
			"saleId": txn.ID.String(),
			"status": string(txn.Status),
		})
		for _, sig := range signals {
			_, _ = e.Events.Emit(ctx, string(sig.Kind), txn.ID, map[string]any{
				"sku":       sig.SKU,
				"quantity":  sig.Quantity,
				"threshold": sig.Threshold,
			})
		}
	}
	return txn, nil
}

// TransitionStatus advances one transaction through the status machine.
// Transitions into canceled or returned put the sold quantities back on the
// shelf inside the same atomic scope.
func (e *Engine) TransitionStatus(ctx context.Context, id uuid.UUID, next Status) (Transaction, error) {
	if e == nil || e.Store == nil || e.Atomic == nil {
		return Transaction{}, errors.New("sale engine not configured")
	}
	var txn Transaction
	err := e.Atomic.Run(ctx, func(ctx context.Context) error {
		current, err := e.Store.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := Transition(current.Status, next); err != nil {
			return err
		}
		if err := e.Store.UpdateStatus(ctx, id, current.Status, next); err != nil {
			return err
		}
		if next == StatusCanceled || next == StatusReturned {
			adds := make([]stock.Request, 0, len(current.Lines))
			for _, ln := range current.Lines {
				adds = append(adds, stock.Request{SKU: ln.SKU, Qty: ln.Qty})
			}
			if _, err := e.Stock.Restock(ctx, adds); err != nil {
				return err
			}
		}
		txn = current
		txn.Status = next
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	if e.Events != nil {
		_, _ = e.Events.Emit(ctx, events.TopicOrderStatusChanged, txn.ID, map[string]any{
			"saleId": txn.ID.String(),
			"status": string(txn.Status),
		})
	}
	return txn, nil
}
