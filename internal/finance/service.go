package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/ledger"
	"github.com/jobelinc/stocktrack/internal/obs"
	"github.com/jobelinc/stocktrack/internal/repo"
)

var (
	// ErrInvalidAccountNumber is returned when an account number is not all digits.
	ErrInvalidAccountNumber = errors.New("account number must be numeric")
	// ErrInvalidAccountType is returned for unknown account types.
	ErrInvalidAccountType = errors.New("unknown account type")
	// ErrEmptyJournal is returned when a posting carries no entries.
	ErrEmptyJournal = errors.New("journal has no entries")
)

// Store is the persistence contract the finance service needs.
type Store interface {
	InsertAccount(ctx context.Context, acct repo.Account) (repo.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (repo.Account, error)
	ListAccounts(ctx context.Context) ([]repo.Account, error)
	InsertEntries(ctx context.Context, journalID uuid.UUID, entries []ledger.Entry) error
	EntriesForAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.Entry, error)
	OpeningBalance(ctx context.Context, accountID uuid.UUID, before time.Time) (decimal.Decimal, error)
	TypeTotalsInRange(ctx context.Context, from, to time.Time) (map[ledger.AccountType]decimal.Decimal, error)
	BalancesByType(ctx context.Context, asOf time.Time) (map[ledger.AccountType]map[string]decimal.Decimal, error)
}

// SalesSource answers revenue and cost questions from committed sales.
type SalesSource interface {
	SalesSummaryRange(ctx context.Context, from, to time.Time) (repo.SalesSummary, error)
}

// Atomic matches the shared atomic scope contract.
type Atomic interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the chart of accounts, journal posting and the
// financial reports.
type Service struct {
	Store  Store
	Sales  SalesSource
	Atomic Atomic
}

// CreateAccount validates and stores a chart-of-accounts row.
func (s *Service) CreateAccount(ctx context.Context, number, name string, typ ledger.AccountType) (repo.Account, error) {
	if !allDigits(number) {
		return repo.Account{}, ErrInvalidAccountNumber
	}
	if !typ.Valid() {
		return repo.Account{}, ErrInvalidAccountType
	}
	return s.Store.InsertAccount(ctx, repo.Account{Number: number, Name: name, Type: typ})
}

// AccountsByType groups the chart of accounts for display.
func (s *Service) AccountsByType(ctx context.Context) (map[ledger.AccountType][]repo.Account, error) {
	accounts, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[ledger.AccountType][]repo.Account)
	for _, acct := range accounts {
		out[acct.Type] = append(out[acct.Type], acct)
	}
	return out, nil
}

// PostJournal persists a balanced set of entries under one journal id. An
// unbalanced journal is rejected before anything is written.
func (s *Service) PostJournal(ctx context.Context, entries []ledger.Entry) (uuid.UUID, error) {
	if len(entries) == 0 {
		return uuid.Nil, ErrEmptyJournal
	}
	if err := ledger.CheckBalanced(entries); err != nil {
		if obs.JournalPostTotal != nil {
			obs.JournalPostTotal.WithLabelValues("rejected").Inc()
		}
		return uuid.Nil, err
	}
	journalID := uuid.New()
	err := s.Atomic.Run(ctx, func(ctx context.Context) error {
		for _, e := range entries {
			if _, err := s.Store.GetAccount(ctx, e.AccountID); err != nil {
				return fmt.Errorf("entry account: %w", err)
			}
		}
		return s.Store.InsertEntries(ctx, journalID, entries)
	})
	if err != nil {
		return uuid.Nil, err
	}
	if obs.JournalPostTotal != nil {
		obs.JournalPostTotal.WithLabelValues("posted").Inc()
	}
	return journalID, nil
}

// LedgerReport computes the running-balance statement for one account over
// [from, to). The opening balance folds everything posted before from.
func (s *Service) LedgerReport(ctx context.Context, accountID uuid.UUID, from, to time.Time) (ledger.Report, error) {
	if _, err := s.Store.GetAccount(ctx, accountID); err != nil {
		return ledger.Report{}, err
	}
	opening, err := s.Store.OpeningBalance(ctx, accountID, from)
	if err != nil {
		return ledger.Report{}, err
	}
	entries, err := s.Store.EntriesForAccount(ctx, accountID, from, to)
	if err != nil {
		return ledger.Report{}, err
	}
	rep, err := ledger.Compute(entries, opening)
	if err != nil {
		return ledger.Report{}, err
	}
	if obs.LedgerReportTotal != nil {
		obs.LedgerReportTotal.Inc()
	}
	return rep, nil
}

// ProfitAndLoss is the P&L statement over one window.
type ProfitAndLoss struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	SalesRevenue decimal.Decimal `json:"sales_revenue"`
	COGS         decimal.Decimal `json:"cogs"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	OtherIncome  decimal.Decimal `json:"other_income"`
	Expenses     decimal.Decimal `json:"expenses"`
	NetProfit    decimal.Decimal `json:"net_profit"`
}

// ComputeProfitAndLoss builds the P&L: sales revenue at discounted prices,
// cost of goods from recorded line costs, other income and expenses from the
// posted ledger.
func (s *Service) ComputeProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	sales, err := s.Sales.SalesSummaryRange(ctx, from, to)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	totals, err := s.Store.TypeTotalsInRange(ctx, from, to)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := ProfitAndLoss{
		From:         from,
		To:           to,
		SalesRevenue: sales.Revenue,
		COGS:         sales.COGS,
		GrossProfit:  sales.Revenue.Sub(sales.COGS),
		OtherIncome:  totals[ledger.AccountRevenue],
		Expenses:     totals[ledger.AccountExpense],
	}
	pl.NetProfit = pl.GrossProfit.Add(pl.OtherIncome).Sub(pl.Expenses)
	return pl, nil
}

// BalanceSheet groups per-account net balances by type as of one instant.
type BalanceSheet struct {
	AsOf             time.Time                  `json:"as_of"`
	Assets           map[string]decimal.Decimal `json:"assets"`
	Liabilities      map[string]decimal.Decimal `json:"liabilities"`
	Equity           map[string]decimal.Decimal `json:"equity"`
	RetainedEarnings decimal.Decimal            `json:"retained_earnings"`
}

// ComputeBalanceSheet builds the balance sheet. Retained earnings is the net
// of all revenue and expense activity to date, which keeps the sheet balanced
// without a closing process.
func (s *Service) ComputeBalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	balances, err := s.Store.BalancesByType(ctx, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	sheet := BalanceSheet{
		AsOf:        asOf,
		Assets:      balances[ledger.AccountAsset],
		Liabilities: negated(balances[ledger.AccountLiability]),
		Equity:      negated(balances[ledger.AccountEquity]),
	}
	retained := decimal.Zero
	for _, v := range balances[ledger.AccountRevenue] {
		retained = retained.Sub(v)
	}
	for _, v := range balances[ledger.AccountExpense] {
		retained = retained.Sub(v)
	}
	sheet.RetainedEarnings = retained
	return sheet, nil
}

// negated flips signs so credit-normal accounts display positive balances.
func negated(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	if in == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v.Neg()
	}
	return out
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
