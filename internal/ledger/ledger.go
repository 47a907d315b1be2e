package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jobelinc/stocktrack/internal/money"
)

var (
	// ErrUnsortedEntries is returned when report input is not in ascending
	// date order. Computing over unsorted input would silently produce a
	// wrong running balance, so it is rejected instead.
	ErrUnsortedEntries = errors.New("ledger entries not sorted by date")
	// ErrUnbalancedJournal is returned when a journal's debits and credits
	// do not net to zero.
	ErrUnbalancedJournal = errors.New("journal debits do not equal credits")
	// ErrInvalidEntryAmount is returned for zero or negative entry amounts.
	ErrInvalidEntryAmount = errors.New("entry amount must be positive")
)

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// Valid reports whether the account type is one of the known five.
func (t AccountType) Valid() bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountRevenue, AccountExpense:
		return true
	}
	return false
}

// EntryType marks which column of the ledger an entry lands in.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// Entry is one posted ledger line for an account.
type Entry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Date      time.Time
	Memo      string
	Type      EntryType
	Amount    money.Money
}

// Signed returns the entry amount with the ledger sign convention applied:
// debits add, credits subtract.
func (e Entry) Signed() money.Money {
	if e.Type == Credit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Row is one line of a running-balance report.
type Row struct {
	Date    time.Time
	Memo    string
	Debit   money.Money
	Credit  money.Money
	Balance money.Money
}

// Report is the computed running-balance statement for one account window.
type Report struct {
	OpeningBalance money.Money
	Rows           []Row
	TotalDebit     money.Money
	TotalCredit    money.Money
	ClosingBalance money.Money
}

// Compute builds the running-balance report over pre-sorted entries. It is a
// pure function: identical inputs always yield the identical report. Entries
// must already be in ascending date order.
func Compute(entries []Entry, opening money.Money) (Report, error) {
	rep := Report{OpeningBalance: opening, ClosingBalance: opening}
	balance := opening
	var prev time.Time
	for i, e := range entries {
		if e.Amount.Sign() <= 0 {
			return Report{}, ErrInvalidEntryAmount
		}
		if i > 0 && e.Date.Before(prev) {
			return Report{}, ErrUnsortedEntries
		}
		prev = e.Date

		row := Row{Date: e.Date, Memo: e.Memo}
		switch e.Type {
		case Debit:
			row.Debit = e.Amount
			balance = balance.Add(e.Amount)
			rep.TotalDebit = rep.TotalDebit.Add(e.Amount)
		case Credit:
			row.Credit = e.Amount
			balance = balance.Sub(e.Amount)
			rep.TotalCredit = rep.TotalCredit.Add(e.Amount)
		}
		row.Balance = balance
		rep.Rows = append(rep.Rows, row)
	}
	rep.ClosingBalance = balance
	return rep, nil
}

// OpeningBalance folds the signed amounts of every entry dated strictly
// before the window start.
func OpeningBalance(entries []Entry, windowStart time.Time) money.Money {
	balance := money.Zero
	for _, e := range entries {
		if e.Date.Before(windowStart) {
			balance = balance.Add(e.Signed())
		}
	}
	return balance
}

// CheckBalanced verifies a journal nets to zero: total debits must equal
// total credits across all of its entries.
func CheckBalanced(entries []Entry) error {
	var debits, credits money.Money
	for _, e := range entries {
		if e.Amount.Sign() <= 0 {
			return ErrInvalidEntryAmount
		}
		switch e.Type {
		case Debit:
			debits = debits.Add(e.Amount)
		case Credit:
			credits = credits.Add(e.Amount)
		}
	}
	if !debits.Equal(credits) {
		return ErrUnbalancedJournal
	}
	return nil
}
