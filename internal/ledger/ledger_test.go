package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/jobelinc/stocktrack/internal/money"
)

func day(n int) time.Time {
	return time.Date(2025, time.March, n, 0, 0, 0, 0, time.UTC)
}

func sample() []Entry {
	return []Entry{
		{Date: day(1), Memo: "cash sale", Type: Debit, Amount: money.MustParse("50")},
		{Date: day(2), Memo: "supplier payment", Type: Credit, Amount: money.MustParse("30")},
		{Date: day(3), Memo: "cash sale", Type: Debit, Amount: money.MustParse("20")},
	}
}

func TestComputeRunningBalance(t *testing.T) {
	rep, err := Compute(sample(), money.MustParse("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"150.00", "120.00", "140.00"}
	if len(rep.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rep.Rows))
	}
	for i, w := range want {
		if money.String(rep.Rows[i].Balance) != w {
			t.Fatalf("row %d: expected balance %s, got %s", i, w, money.String(rep.Rows[i].Balance))
		}
	}
	if money.String(rep.TotalDebit) != "70.00" {
		t.Fatalf("expected total debit 70.00, got %s", money.String(rep.TotalDebit))
	}
	if money.String(rep.TotalCredit) != "30.00" {
		t.Fatalf("expected total credit 30.00, got %s", money.String(rep.TotalCredit))
	}
	if money.String(rep.ClosingBalance) != "140.00" {
		t.Fatalf("expected closing 140.00, got %s", money.String(rep.ClosingBalance))
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	first, err := Compute(sample(), money.MustParse("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(sample(), money.MustParse("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts differ")
	}
	for i := range first.Rows {
		if !first.Rows[i].Balance.Equal(second.Rows[i].Balance) {
			t.Fatalf("row %d balances differ", i)
		}
	}
	if !first.ClosingBalance.Equal(second.ClosingBalance) {
		t.Fatalf("closing balances differ")
	}
}

func TestComputeRejectsUnsortedInput(t *testing.T) {
	entries := []Entry{
		{Date: day(3), Type: Debit, Amount: money.MustParse("10")},
		{Date: day(1), Type: Credit, Amount: money.MustParse("5")},
	}
	if _, err := Compute(entries, money.Zero); !errors.Is(err, ErrUnsortedEntries) {
		t.Fatalf("expected ErrUnsortedEntries, got %v", err)
	}
}

func TestOpeningBalance(t *testing.T) {
	entries := append([]Entry{
		{Date: day(1), Type: Debit, Amount: money.MustParse("40")},
		{Date: day(2), Type: Credit, Amount: money.MustParse("15")},
	}, Entry{Date: day(10), Type: Debit, Amount: money.MustParse("99")})
	opening := OpeningBalance(entries, day(10))
	if money.String(opening) != "25.00" {
		t.Fatalf("expected opening 25.00, got %s", money.String(opening))
	}
}

func TestCheckBalanced(t *testing.T) {
	balanced := []Entry{
		{Type: Debit, Amount: money.MustParse("60")},
		{Type: Credit, Amount: money.MustParse("40")},
		{Type: Credit, Amount: money.MustParse("20")},
	}
	if err := CheckBalanced(balanced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unbalanced := []Entry{
		{Type: Debit, Amount: money.MustParse("60")},
		{Type: Credit, Amount: money.MustParse("40")},
	}
	if err := CheckBalanced(unbalanced); !errors.Is(err, ErrUnbalancedJournal) {
		t.Fatalf("expected ErrUnbalancedJournal, got %v", err)
	}
}
