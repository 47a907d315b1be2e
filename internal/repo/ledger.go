package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/ledger"
)

// ErrAccountNotFound is returned when an account id or number does not exist
// for the tenant.
var ErrAccountNotFound = errors.New("account not found")

// Account is one chart-of-accounts row.
type Account struct {
	ID     uuid.UUID
	Number string
	Name   string
	Type   ledger.AccountType
}

// LedgerRepo stores accounts and journal entries per tenant.
type LedgerRepo struct {
	DB *DB
}

// InsertAccount creates a chart-of-accounts row.
func (r LedgerRepo) InsertAccount(ctx context.Context, acct Account) (Account, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return Account{}, err
	}
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO accounts (id, tenant_id, number, name, type)
		VALUES ($1, $2, $3, $4, $5)`,
		acct.ID, tid, acct.Number, acct.Name, string(acct.Type))
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

// GetAccount fetches one account by id.
func (r LedgerRepo) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return Account{}, err
	}
	var acct Account
	var typ string
	err = r.DB.q(ctx).QueryRow(ctx, `
		SELECT id, number, name, type
		FROM accounts
		WHERE tenant_id = $1 AND id = $2`, tid, id).
		Scan(&acct.ID, &acct.Number, &acct.Name, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	acct.Type = ledger.AccountType(typ)
	return acct, nil
}

// ListAccounts returns the tenant chart of accounts ordered by number.
func (r LedgerRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, number, name, type
		FROM accounts
		WHERE tenant_id = $1
		ORDER BY number`, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var acct Account
		var typ string
		if err := rows.Scan(&acct.ID, &acct.Number, &acct.Name, &typ); err != nil {
			return nil, err
		}
		acct.Type = ledger.AccountType(typ)
		out = append(out, acct)
	}
	return out, rows.Err()
}

// InsertEntries posts journal entries under one journal id. Balance checking
// is the finance service's job; this is plain persistence inside the caller's
// atomic scope.
func (r LedgerRepo) InsertEntries(ctx context.Context, journalID uuid.UUID, entries []ledger.Entry) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err = r.DB.q(ctx).Exec(ctx, `
			INSERT INTO journal_entries (id, tenant_id, journal_id, account_id, entry_date, memo, entry_type, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)`,
			id, tid, journalID, e.AccountID, e.Date, e.Memo, string(e.Type), e.Amount.String())
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}
	}
	return nil
}

// EntriesForAccount returns entries for one account inside [from, to),
// ordered by date so the report can fold them directly.
func (r LedgerRepo) EntriesForAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, account_id, entry_date, memo, entry_type, amount::text
		FROM journal_entries
		WHERE tenant_id = $1 AND account_id = $2 AND entry_date >= $3 AND entry_date < $4
		ORDER BY entry_date, id`, tid, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var typ, amount string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Date, &e.Memo, &typ, &amount); err != nil {
			return nil, err
		}
		e.Type = ledger.EntryType(typ)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OpeningBalance folds debits minus credits for every entry dated strictly
// before the window start.
func (r LedgerRepo) OpeningBalance(ctx context.Context, accountID uuid.UUID, before time.Time) (decimal.Decimal, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var raw string
	err = r.DB.q(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'debit' THEN amount ELSE -amount END), 0)::text
		FROM journal_entries
		WHERE tenant_id = $1 AND account_id = $2 AND entry_date < $3`,
		tid, accountID, before).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// TypeTotalsInRange sums the natural-signed activity per account type inside
// [from, to): credit-normal types (revenue, liability, equity) count credits
// minus debits, the rest debits minus credits.
func (r LedgerRepo) TypeTotalsInRange(ctx context.Context, from, to time.Time) (map[ledger.AccountType]decimal.Decimal, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT a.type,
		       COALESCE(SUM(CASE
		           WHEN a.type IN ('revenue', 'liability', 'equity') THEN
		               CASE WHEN e.entry_type = 'credit' THEN e.amount ELSE -e.amount END
		           ELSE
		               CASE WHEN e.entry_type = 'debit' THEN e.amount ELSE -e.amount END
		       END), 0)::text
		FROM accounts a
		JOIN journal_entries e ON e.account_id = a.id AND e.tenant_id = a.tenant_id
		WHERE a.tenant_id = $1 AND e.entry_date >= $2 AND e.entry_date < $3
		GROUP BY a.type`, tid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.AccountType]decimal.Decimal)
	for rows.Next() {
		var typ, raw string
		if err := rows.Scan(&typ, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		out[ledger.AccountType(typ)] = amount
	}
	return out, rows.Err()
}

// BalancesByType sums each account's net balance grouped by account type,
// feeding the balance sheet.
func (r LedgerRepo) BalancesByType(ctx context.Context, asOf time.Time) (map[ledger.AccountType]map[string]decimal.Decimal, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT a.type, a.name,
		       COALESCE(SUM(CASE WHEN e.entry_type = 'debit' THEN e.amount ELSE -e.amount END), 0)::text
		FROM accounts a
		LEFT JOIN journal_entries e
		  ON e.account_id = a.id AND e.tenant_id = a.tenant_id AND e.entry_date < $2
		WHERE a.tenant_id = $1
		GROUP BY a.type, a.name
		ORDER BY a.type, a.name`, tid, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.AccountType]map[string]decimal.Decimal)
	for rows.Next() {
		var typ, name, raw string
		if err := rows.Scan(&typ, &name, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		t := ledger.AccountType(typ)
		if out[t] == nil {
			out[t] = make(map[string]decimal.Decimal)
		}
		out[t][name] = amount
	}
	return out, rows.Err()
}
