package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/pricing"
	"github.com/jobelinc/stocktrack/internal/sale"
)

// SalesRepo persists committed transactions and their lines.
type SalesRepo struct {
	DB *DB
}

// InsertTransaction writes the transaction header and every line. It expects
// to run inside the commit's atomic scope.
func (r SalesRepo) InsertTransaction(ctx context.Context, txn sale.Transaction) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO sales (id, tenant_id, status, tax_percent, subtotal, tax, total, tendered, change_due, profit, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11)`,
		txn.ID, tid, string(txn.Status), txn.TaxPercent.String(),
		txn.Subtotal.String(), txn.Tax.String(), txn.Total.String(),
		txn.Tendered.String(), txn.Change.String(), txn.Profit.String(), txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	for _, ln := range txn.Lines {
		_, err = r.DB.q(ctx).Exec(ctx, `
			INSERT INTO sale_lines (sale_id, sku, name, qty, unit_price, discounted_price, line_total, profit)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric)`,
			txn.ID, ln.SKU, ln.Name, ln.Qty,
			ln.UnitPrice.String(), ln.DiscountedPrice.String(), ln.Total.String(), ln.Profit.String())
		if err != nil {
			return fmt.Errorf("insert sale line %s: %w", ln.SKU, err)
		}
	}
	return nil
}

// GetTransaction loads one transaction with its lines.
func (r SalesRepo) GetTransaction(ctx context.Context, id uuid.UUID) (sale.Transaction, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return sale.Transaction{}, err
	}
	var txn sale.Transaction
	var status string
	var taxPercent, subtotal, tax, total, tendered, change, profit string
	err = r.DB.q(ctx).QueryRow(ctx, `
		SELECT id, status, tax_percent::text, subtotal::text, tax::text, total::text, tendered::text, change_due::text, profit::text, created_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2`, tid, id).
		Scan(&txn.ID, &status, &taxPercent, &subtotal, &tax, &total, &tendered, &change, &profit, &txn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return sale.Transaction{}, sale.ErrNotFound
	}
	if err != nil {
		return sale.Transaction{}, err
	}
	txn.Status = sale.Status(status)
	if txn.TaxPercent, err = decimal.NewFromString(taxPercent); err != nil {
		return sale.Transaction{}, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&txn.Subtotal, subtotal}, {&txn.Tax, tax}, {&txn.Total, total},
		{&txn.Tendered, tendered}, {&txn.Change, change}, {&txn.Profit, profit},
	} {
		if *pair.dst, err = decimal.NewFromString(pair.src); err != nil {
			return sale.Transaction{}, err
		}
	}

	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT sku, name, qty, unit_price::text, discounted_price::text, line_total::text, profit::text
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY sku`, id)
	if err != nil {
		return sale.Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln pricing.Line
		var unitPrice, discounted, lineTotal, lineProfit string
		if err := rows.Scan(&ln.SKU, &ln.Name, &ln.Qty, &unitPrice, &discounted, &lineTotal, &lineProfit); err != nil {
			return sale.Transaction{}, err
		}
		if ln.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return sale.Transaction{}, err
		}
		if ln.DiscountedPrice, err = decimal.NewFromString(discounted); err != nil {
			return sale.Transaction{}, err
		}
		if ln.Total, err = decimal.NewFromString(lineTotal); err != nil {
			return sale.Transaction{}, err
		}
		if ln.Profit, err = decimal.NewFromString(lineProfit); err != nil {
			return sale.Transaction{}, err
		}
		txn.Lines = append(txn.Lines, ln)
	}
	return txn, rows.Err()
}

// UpdateStatus moves a transaction to the given status. The from status acts
// as a compare-and-swap guard against concurrent transitions.
func (r SalesRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to sale.Status) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.q(ctx).Exec(ctx, `
		UPDATE sales
		SET status = $4
		WHERE tenant_id = $1 AND id = $2 AND status = $3`,
		tid, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return sale.ErrInvalidTransition
	}
	return nil
}

// List returns tenant transactions, optionally narrowed by status.
func (r SalesRepo) List(ctx context.Context, status *string, limit, offset int32) ([]sale.Transaction, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, status, total::text, created_at
		FROM sales
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, tid, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sale.Transaction
	for rows.Next() {
		var txn sale.Transaction
		var st, total string
		if err := rows.Scan(&txn.ID, &st, &total, &txn.CreatedAt); err != nil {
			return nil, err
		}
		txn.Status = sale.Status(st)
		if txn.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

var _ sale.Store = SalesRepo{}
