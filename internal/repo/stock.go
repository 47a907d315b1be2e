package repo

import (
	"context"
	"fmt"

	"github.com/jobelinc/stocktrack/internal/stock"
)

// StockRepo is the Postgres-backed stock ledger. All reads and writes are
// tenant scoped; ReserveAndDecrement relies on row locks for its atomicity,
// so it must run inside a DB.Run scope.
type StockRepo struct {
	DB *DB
}

// Levels fetches current levels for the given SKUs. When called inside an
// open transaction the rows are locked in SKU order, which keeps concurrent
// commits over overlapping baskets deadlock-free.
func (r StockRepo) Levels(ctx context.Context, skus []string) (map[string]stock.Level, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), skus...)
	stock.SortSKUs(sorted)

	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT sku, quantity, low_stock_threshold, out_of_stock
		FROM stock_levels
		WHERE tenant_id = $1 AND sku = ANY($2)
		ORDER BY sku
		FOR UPDATE`, tid, sorted)
	if err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}
	defer rows.Close()

	out := make(map[string]stock.Level, len(sorted))
	for rows.Next() {
		var lvl stock.Level
		if err := rows.Scan(&lvl.SKU, &lvl.Quantity, &lvl.LowStockThreshold, &lvl.OutOfStock); err != nil {
			return nil, err
		}
		out[lvl.SKU] = lvl
	}
	return out, rows.Err()
}

// ReserveAndDecrement locks the rows, plans the decrement all-or-nothing, and
// applies it. Any shortfall surfaces as InsufficientStockError before a
// single row changed; the enclosing transaction then rolls back whatever else
// the commit had staged.
func (r StockRepo) ReserveAndDecrement(ctx context.Context, reqs []stock.Request) ([]stock.Signal, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	skus := make([]string, 0, len(reqs))
	for _, req := range reqs {
		skus = append(skus, req.SKU)
	}
	levels, err := r.Levels(ctx, skus)
	if err != nil {
		return nil, err
	}
	next, signals, err := stock.Plan(levels, reqs)
	if err != nil {
		return nil, err
	}
	for _, lvl := range next {
		tag, err := r.DB.q(ctx).Exec(ctx, `
			UPDATE stock_levels
			SET quantity = $3, out_of_stock = $4
			WHERE tenant_id = $1 AND sku = $2`,
			tid, lvl.SKU, lvl.Quantity, lvl.OutOfStock)
		if err != nil {
			return nil, fmt.Errorf("decrement %s: %w", lvl.SKU, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("%w: %s", stock.ErrUnknownSKU, lvl.SKU)
		}
	}
	return signals, nil
}

// Restock adds quantities back and clears the out-of-stock flag where the
// quantity recovers.
func (r StockRepo) Restock(ctx context.Context, adds []stock.Request) ([]stock.Level, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]stock.Level, 0, len(adds))
	for _, a := range adds {
		if a.Qty <= 0 {
			return nil, fmt.Errorf("%w: %s", stock.ErrInvalidQuantity, a.SKU)
		}
		var lvl stock.Level
		err := r.DB.q(ctx).QueryRow(ctx, `
			UPDATE stock_levels
			SET quantity = quantity + $3,
			    out_of_stock = (quantity + $3) = 0
			WHERE tenant_id = $1 AND sku = $2
			RETURNING sku, quantity, low_stock_threshold, out_of_stock`,
			tid, a.SKU, a.Qty).Scan(&lvl.SKU, &lvl.Quantity, &lvl.LowStockThreshold, &lvl.OutOfStock)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", stock.ErrUnknownSKU, a.SKU)
		}
		out = append(out, lvl)
	}
	return out, nil
}

// UpsertLevel seeds or replaces one level row.
func (r StockRepo) UpsertLevel(ctx context.Context, lvl stock.Level) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	threshold := lvl.LowStockThreshold
	if threshold <= 0 {
		threshold = stock.DefaultLowStockThreshold
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO stock_levels (tenant_id, sku, quantity, low_stock_threshold, out_of_stock)
		VALUES ($1, $2, $3, $4, $3 = 0)
		ON CONFLICT (tenant_id, sku)
		DO UPDATE SET quantity = EXCLUDED.quantity,
		              low_stock_threshold = EXCLUDED.low_stock_threshold,
		              out_of_stock = EXCLUDED.out_of_stock`,
		tid, lvl.SKU, lvl.Quantity, threshold)
	return err
}

// LowStock lists SKUs at or under their threshold for back-office review.
func (r StockRepo) LowStock(ctx context.Context, limit, offset int32) ([]stock.Level, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT sku, quantity, low_stock_threshold, out_of_stock
		FROM stock_levels
		WHERE tenant_id = $1 AND quantity <= low_stock_threshold
		ORDER BY quantity ASC, sku
		LIMIT $2 OFFSET $3`, tid, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.Level
	for rows.Next() {
		var lvl stock.Level
		if err := rows.Scan(&lvl.SKU, &lvl.Quantity, &lvl.LowStockThreshold, &lvl.OutOfStock); err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, rows.Err()
}

var _ stock.Store = StockRepo{}
