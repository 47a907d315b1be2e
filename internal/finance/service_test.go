package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/finance"
	"github.com/jobelinc/stocktrack/internal/ledger"
	"github.com/jobelinc/stocktrack/internal/repo"
	"github.com/jobelinc/stocktrack/internal/sale"
)

type memLedger struct {
	accounts map[uuid.UUID]repo.Account
	entries  []ledger.Entry
}

func newMemLedger() *memLedger {
	return &memLedger{accounts: make(map[uuid.UUID]repo.Account)}
}

func (m *memLedger) InsertAccount(_ context.Context, acct repo.Account) (repo.Account, error) {
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	m.accounts[acct.ID] = acct
	return acct, nil
}

func (m *memLedger) GetAccount(_ context.Context, id uuid.UUID) (repo.Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return repo.Account{}, repo.ErrAccountNotFound
	}
	return acct, nil
}

func (m *memLedger) ListAccounts(_ context.Context) ([]repo.Account, error) {
	out := make([]repo.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		out = append(out, acct)
	}
	return out, nil
}

func (m *memLedger) InsertEntries(_ context.Context, _ uuid.UUID, entries []ledger.Entry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memLedger) EntriesForAccount(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.AccountID == accountID && !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) OpeningBalance(_ context.Context, accountID uuid.UUID, before time.Time) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID == accountID && e.Date.Before(before) {
			balance = balance.Add(e.Signed())
		}
	}
	return balance, nil
}

func (m *memLedger) TypeTotalsInRange(_ context.Context, from, to time.Time) (map[ledger.AccountType]decimal.Decimal, error) {
	out := make(map[ledger.AccountType]decimal.Decimal)
	for _, e := range m.entries {
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		typ := m.accounts[e.AccountID].Type
		signed := e.Signed()
		switch typ {
		case ledger.AccountRevenue, ledger.AccountLiability, ledger.AccountEquity:
			signed = signed.Neg()
		}
		out[typ] = out[typ].Add(signed)
	}
	return out, nil
}

func (m *memLedger) BalancesByType(_ context.Context, asOf time.Time) (map[ledger.AccountType]map[string]decimal.Decimal, error) {
	out := make(map[ledger.AccountType]map[string]decimal.Decimal)
	for _, e := range m.entries {
		if !e.Date.Before(asOf) {
			continue
		}
		acct := m.accounts[e.AccountID]
		if out[acct.Type] == nil {
			out[acct.Type] = make(map[string]decimal.Decimal)
		}
		out[acct.Type][acct.Name] = out[acct.Type][acct.Name].Add(e.Signed())
	}
	return out, nil
}

type stubSales struct {
	summary repo.SalesSummary
}

func (s stubSales) SalesSummaryRange(context.Context, time.Time, time.Time) (repo.SalesSummary, error) {
	return s.summary, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(n int) time.Time {
	return time.Date(2025, time.April, n, 0, 0, 0, 0, time.UTC)
}

func newService(store finance.Store) *finance.Service {
	return &finance.Service{Store: store, Sales: stubSales{}, Atomic: sale.NopAtomic{}}
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newService(newMemLedger())
	_, err := svc.CreateAccount(context.Background(), "10a0", "Cash", ledger.AccountAsset)
	require.ErrorIs(t, err, finance.ErrInvalidAccountNumber)

	_, err = svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountType("misc"))
	require.ErrorIs(t, err, finance.ErrInvalidAccountType)

	acct, err := svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountAsset)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, acct.ID)
}

func TestPostJournalRejectsUnbalanced(t *testing.T) {
	store := newMemLedger()
	svc := newService(store)
	cash, _ := svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountAsset)
	revenue, _ := svc.CreateAccount(context.Background(), "4000", "Sales", ledger.AccountRevenue)

	_, err := svc.PostJournal(context.Background(), []ledger.Entry{
		{AccountID: cash.ID, Date: day(1), Type: ledger.Debit, Amount: dec("100")},
		{AccountID: revenue.ID, Date: day(1), Type: ledger.Credit, Amount: dec("90")},
	})
	require.ErrorIs(t, err, ledger.ErrUnbalancedJournal)
	require.Empty(t, store.entries)
}

func TestLedgerReportWindow(t *testing.T) {
	store := newMemLedger()
	svc := newService(store)
	cash, _ := svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountAsset)
	equity, _ := svc.CreateAccount(context.Background(), "3000", "Capital", ledger.AccountEquity)

	post := func(d time.Time, typ ledger.EntryType, amount string) {
		counter := ledger.Credit
		if typ == ledger.Credit {
			counter = ledger.Debit
		}
		_, err := svc.PostJournal(context.Background(), []ledger.Entry{
			{AccountID: cash.ID, Date: d, Type: typ, Amount: dec(amount)},
			{AccountID: equity.ID, Date: d, Type: counter, Amount: dec(amount)},
		})
		require.NoError(t, err)
	}
	post(day(1), ledger.Debit, "100")
	post(day(10), ledger.Debit, "50")
	post(day(11), ledger.Credit, "30")
	post(day(12), ledger.Debit, "20")

	rep, err := svc.LedgerReport(context.Background(), cash.ID, day(10), day(20))
	require.NoError(t, err)
	require.Equal(t, "100", rep.OpeningBalance.String())
	require.Len(t, rep.Rows, 3)
	require.Equal(t, "150", rep.Rows[0].Balance.String())
	require.Equal(t, "120", rep.Rows[1].Balance.String())
	require.Equal(t, "140", rep.Rows[2].Balance.String())
	require.Equal(t, "70", rep.TotalDebit.String())
	require.Equal(t, "30", rep.TotalCredit.String())
}

func TestProfitAndLoss(t *testing.T) {
	store := newMemLedger()
	svc := newService(store)
	svc.Sales = stubSales{summary: repo.SalesSummary{
		Revenue: dec("500"),
		COGS:    dec("300"),
		Profit:  dec("200"),
	}}
	expense, _ := svc.CreateAccount(context.Background(), "5000", "Rent", ledger.AccountExpense)
	cash, _ := svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountAsset)
	_, err := svc.PostJournal(context.Background(), []ledger.Entry{
		{AccountID: expense.ID, Date: day(5), Type: ledger.Debit, Amount: dec("80")},
		{AccountID: cash.ID, Date: day(5), Type: ledger.Credit, Amount: dec("80")},
	})
	require.NoError(t, err)

	pl, err := svc.ComputeProfitAndLoss(context.Background(), day(1), day(30))
	require.NoError(t, err)
	require.Equal(t, "200", pl.GrossProfit.String())
	require.Equal(t, "80", pl.Expenses.String())
	require.Equal(t, "120", pl.NetProfit.String())
}

func TestBalanceSheetRetainedEarnings(t *testing.T) {
	store := newMemLedger()
	svc := newService(store)
	cash, _ := svc.CreateAccount(context.Background(), "1000", "Cash", ledger.AccountAsset)
	revenue, _ := svc.CreateAccount(context.Background(), "4000", "Sales", ledger.AccountRevenue)

	_, err := svc.PostJournal(context.Background(), []ledger.Entry{
		{AccountID: cash.ID, Date: day(2), Type: ledger.Debit, Amount: dec("250")},
		{AccountID: revenue.ID, Date: day(2), Type: ledger.Credit, Amount: dec("250")},
	})
	require.NoError(t, err)

	sheet, err := svc.ComputeBalanceSheet(context.Background(), day(30))
	require.NoError(t, err)
	require.Equal(t, "250", sheet.Assets["Cash"].String())
	require.Equal(t, "250", sheet.RetainedEarnings.String())
}
