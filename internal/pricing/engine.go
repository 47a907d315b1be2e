package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/money"
)

var (
	// ErrInvalidDiscount is returned when a discount percentage falls outside [0, 100].
	ErrInvalidDiscount = errors.New("discount percent out of range")
	// ErrInvalidQuantity is returned when a line quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidTax is returned when a tax percentage falls outside [0, 100].
	ErrInvalidTax = errors.New("tax percent out of range")
)

// Snapshot is an immutable view of a SKU's commercial terms captured at the
// moment a transaction begins. Later catalog edits never affect a transaction
// priced from an earlier snapshot.
type Snapshot struct {
	SKU             string
	Name            string
	UnitCost        money.Money
	UnitPrice       money.Money
	DiscountPercent *decimal.Decimal
}

// Line is the priced result for one basket line.
type Line struct {
	SKU             string
	Name            string
	Qty             int
	UnitPrice       money.Money
	DiscountedPrice money.Money
	Total           money.Money
	Profit          money.Money
}

// Summary aggregates computed transaction totals.
type Summary struct {
	Subtotal money.Money
	Tax      money.Money
	Total    money.Money
	Change   money.Money
	Profit   money.Money
}

var hundred = decimal.NewFromInt(100)

// ApplyDiscount reduces base by percent and rounds half-up to two decimal
// places. A nil or zero percent returns base unchanged. The result is clamped
// at zero so a discount can never produce a negative price.
func ApplyDiscount(base money.Money, percent *decimal.Decimal) (money.Money, error) {
	if percent == nil || percent.IsZero() {
		return base, nil
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return money.Zero, ErrInvalidDiscount
	}
	discounted := base.Sub(base.Mul(*percent).Div(hundred))
	if discounted.IsNegative() {
		discounted = money.Zero
	}
	return money.Round(discounted), nil
}

// PriceLine prices a single basket line from its catalog snapshot. Per-unit
// rounding happens once, at the discount boundary; line totals multiply the
// already-rounded unit price.
func PriceLine(snap Snapshot, qty int) (Line, error) {
	if qty <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	discounted, err := ApplyDiscount(snap.UnitPrice, snap.DiscountPercent)
	if err != nil {
		return Line{}, err
	}
	q := decimal.NewFromInt(int64(qty))
	return Line{
		SKU:             snap.SKU,
		Name:            snap.Name,
		Qty:             qty,
		UnitPrice:       snap.UnitPrice,
		DiscountedPrice: discounted,
		Total:           discounted.Mul(q),
		Profit:          discounted.Sub(snap.UnitCost).Mul(q),
	}, nil
}

// Compute derives the transaction summary from priced lines. Tax is rounded
// half-up at its own boundary; the subtotal is the exact sum of line totals.
func Compute(lines []Line, taxPercent decimal.Decimal, tendered money.Money) (Summary, error) {
	if taxPercent.IsNegative() || taxPercent.GreaterThan(hundred) {
		return Summary{}, ErrInvalidTax
	}
	var subtotal, profit money.Money
	for _, ln := range lines {
		subtotal = subtotal.Add(ln.Total)
		profit = profit.Add(ln.Profit)
	}
	tax := money.Round(subtotal.Mul(taxPercent).Div(hundred))
	total := subtotal.Add(tax)
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
		Change:   tendered.Sub(total),
		Profit:   profit,
	}, nil
}
