package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/money"
)

func pct(s string) *decimal.Decimal {
	d := money.MustParse(s)
	return &d
}

func TestApplyDiscountNilAndZero(t *testing.T) {
	base := money.MustParse("10.00")
	got, err := ApplyDiscount(base, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(base) {
		t.Fatalf("nil percent should leave price unchanged, got %s", got)
	}
	got, err = ApplyDiscount(base, pct("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(base) {
		t.Fatalf("zero percent should leave price unchanged, got %s", got)
	}
}

func TestApplyDiscountFullAndRounding(t *testing.T) {
	got, err := ApplyDiscount(money.MustParse("10.00"), pct("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("100%% discount should be free, got %s", got)
	}

	// 9.99 at 12.5% -> 8.74125, rounds half-up to 8.74.
	got, err = ApplyDiscount(money.MustParse("9.99"), pct("12.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.String(got) != "8.74" {
		t.Fatalf("expected 8.74, got %s", money.String(got))
	}

	// 10.01 at 50% -> 5.005, half-up to 5.01 (not banker's 5.00).
	got, err = ApplyDiscount(money.MustParse("10.01"), pct("50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.String(got) != "5.01" {
		t.Fatalf("expected half-up 5.01, got %s", money.String(got))
	}
}

func TestApplyDiscountOutOfRange(t *testing.T) {
	if _, err := ApplyDiscount(money.New(10), pct("-1")); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
	if _, err := ApplyDiscount(money.New(10), pct("100.01")); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestPriceLineTotalsAndProfit(t *testing.T) {
	snap := Snapshot{
		SKU:             "SKU-1",
		UnitCost:        money.MustParse("6.00"),
		UnitPrice:       money.MustParse("10.00"),
		DiscountPercent: pct("10"),
	}
	ln, err := PriceLine(snap, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.String(ln.DiscountedPrice) != "9.00" {
		t.Fatalf("expected discounted 9.00, got %s", money.String(ln.DiscountedPrice))
	}
	if money.String(ln.Total) != "18.00" {
		t.Fatalf("expected total 18.00, got %s", money.String(ln.Total))
	}
	if money.String(ln.Profit) != "6.00" {
		t.Fatalf("expected profit 6.00, got %s", money.String(ln.Profit))
	}
	if ln.DiscountedPrice.GreaterThan(ln.UnitPrice) {
		t.Fatalf("discounted price must never exceed unit price")
	}
}

func TestPriceLineRejectsNonPositiveQty(t *testing.T) {
	snap := Snapshot{SKU: "SKU-1", UnitPrice: money.New(5)}
	for _, qty := range []int{0, -1} {
		if _, err := PriceLine(snap, qty); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("qty %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
}

func TestComputeTaxAndChange(t *testing.T) {
	snap := Snapshot{
		SKU:             "SKU-1",
		UnitCost:        money.MustParse("6.00"),
		UnitPrice:       money.MustParse("10.00"),
		DiscountPercent: pct("10"),
	}
	ln, err := PriceLine(snap, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum, err := Compute([]Line{ln}, money.MustParse("5"), money.MustParse("20.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if money.String(sum.Subtotal) != "18.00" {
		t.Fatalf("expected subtotal 18.00, got %s", money.String(sum.Subtotal))
	}
	if money.String(sum.Tax) != "0.90" {
		t.Fatalf("expected tax 0.90, got %s", money.String(sum.Tax))
	}
	if money.String(sum.Total) != "18.90" {
		t.Fatalf("expected total 18.90, got %s", money.String(sum.Total))
	}
	if money.String(sum.Change) != "1.10" {
		t.Fatalf("expected change 1.10, got %s", money.String(sum.Change))
	}
}

func TestComputeRejectsBadTaxPercent(t *testing.T) {
	if _, err := Compute(nil, money.MustParse("-1"), money.Zero); !errors.Is(err, ErrInvalidTax) {
		t.Fatalf("expected ErrInvalidTax, got %v", err)
	}
}
