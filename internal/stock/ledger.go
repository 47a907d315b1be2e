package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultLowStockThreshold applies when a SKU has no explicit threshold.
const DefaultLowStockThreshold = 5

var (
	// ErrUnknownSKU is returned when a request names a SKU the ledger does not track.
	ErrUnknownSKU = errors.New("unknown sku")
	// ErrInvalidQuantity is returned when a request quantity is zero or negative.
	ErrInvalidQuantity = errors.New("stock quantity must be positive")
)

// Level is the tracked state for one SKU.
type Level struct {
	SKU               string `json:"sku"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	OutOfStock        bool   `json:"out_of_stock"`
}

// Request asks to reserve (or, for restocks, add) a quantity of one SKU.
type Request struct {
	SKU string
	Qty int
}

// SignalKind classifies a stock signal.
type SignalKind string

const (
	// SignalLow fires when a decrement leaves 0 < quantity <= threshold.
	SignalLow SignalKind = "stock.low"
	// SignalOut fires when a decrement leaves quantity == 0.
	SignalOut SignalKind = "stock.out"
)

// Signal is an observation emitted after a successful decrement. Delivery is
// the event bus's concern; the ledger only reports the condition.
type Signal struct {
	SKU       string
	Kind      SignalKind
	Quantity  int
	Threshold int
}

// InsufficientStockError reports the first SKU that cannot cover its
// requested quantity. The ledger guarantees no mutation happened.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// IsInsufficientStock reports whether err wraps an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// Plan checks every request against the current levels before committing to
// any decrement, then returns the post-decrement levels alongside the signals
// the decrement would raise. Requests for the same SKU are summed first so a
// basket cannot pass the check line by line while failing in aggregate.
// Plan is pure; callers apply the returned levels inside their own atomic
// scope.
func Plan(levels map[string]Level, reqs []Request) ([]Level, []Signal, error) {
	needs := make(map[string]int, len(reqs))
	order := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.Qty <= 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, r.SKU)
		}
		if _, seen := needs[r.SKU]; !seen {
			order = append(order, r.SKU)
		}
		needs[r.SKU] += r.Qty
	}

	for _, sku := range order {
		lvl, ok := levels[sku]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
		}
		if needs[sku] > lvl.Quantity {
			return nil, nil, &InsufficientStockError{SKU: sku, Requested: needs[sku], Available: lvl.Quantity}
		}
	}

	next := make([]Level, 0, len(order))
	var signals []Signal
	for _, sku := range order {
		lvl := levels[sku]
		lvl.Quantity -= needs[sku]
		threshold := lvl.LowStockThreshold
		if threshold <= 0 {
			threshold = DefaultLowStockThreshold
		}
		switch {
		case lvl.Quantity == 0:
			lvl.OutOfStock = true
			signals = append(signals, Signal{SKU: sku, Kind: SignalOut, Quantity: 0, Threshold: threshold})
		case lvl.Quantity <= threshold:
			signals = append(signals, Signal{SKU: sku, Kind: SignalLow, Quantity: lvl.Quantity, Threshold: threshold})
		}
		next = append(next, lvl)
	}
	return next, signals, nil
}

// Store is the ledger persistence contract shared by the in-memory store and
// the Postgres repository.
type Store interface {
	// Levels fetches the current levels for the given SKUs.
	Levels(ctx context.Context, skus []string) (map[string]Level, error)
	// ReserveAndDecrement atomically checks and decrements every request.
	// On any shortfall it returns InsufficientStockError and leaves every
	// level untouched.
	ReserveAndDecrement(ctx context.Context, reqs []Request) ([]Signal, error)
	// Restock adds quantities back (deliveries, returns, received purchase
	// orders) and clears the out-of-stock flag where quantity recovers.
	Restock(ctx context.Context, adds []Request) ([]Level, error)
}

// SortSKUs orders SKUs lexicographically. Stores that lock rows do so in this
// order so concurrent commits over overlapping baskets cannot deadlock.
func SortSKUs(skus []string) {
	sort.Strings(skus)
}
