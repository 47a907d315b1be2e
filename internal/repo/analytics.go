package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates committed sale activity over a window.
type SalesSummary struct {
	Revenue          decimal.Decimal `json:"revenue"`
	COGS             decimal.Decimal `json:"cogs"`
	Profit           decimal.Decimal `json:"profit"`
	ItemsSold        int64           `json:"items_sold"`
	TransactionCount int64           `json:"transaction_count"`
}

// AnalyticsRepo answers aggregate questions over the sales tables. Canceled,
// returned and refunded transactions are excluded so reports reflect realised
// revenue only.
type AnalyticsRepo struct {
	DB *DB
}

// SalesSummaryRange sums revenue, cost of goods and profit between from
// (inclusive) and to (exclusive). Revenue is taken at discounted line prices;
// cost of goods is revenue minus recorded line profit.
func (r AnalyticsRepo) SalesSummaryRange(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return SalesSummary{}, err
	}
	var revenue, profit string
	var items, count int64
	err = r.DB.q(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(l.line_total), 0)::text,
		       COALESCE(SUM(l.profit), 0)::text,
		       COALESCE(SUM(l.qty), 0),
		       COUNT(DISTINCT s.id)
		FROM sales s
		JOIN sale_lines l ON l.sale_id = s.id
		WHERE s.tenant_id = $1
		  AND s.created_at >= $2 AND s.created_at < $3
		  AND s.status NOT IN ('canceled', 'returned', 'refunded')`,
		tid, from, to).Scan(&revenue, &profit, &items, &count)
	if err != nil {
		return SalesSummary{}, err
	}
	sum := SalesSummary{ItemsSold: items, TransactionCount: count}
	if sum.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return SalesSummary{}, err
	}
	if sum.Profit, err = decimal.NewFromString(profit); err != nil {
		return SalesSummary{}, err
	}
	sum.COGS = sum.Revenue.Sub(sum.Profit)
	return sum, nil
}

// TopSKU is one row of the best-sellers listing.
type TopSKU struct {
	SKU     string          `json:"sku"`
	Name    string          `json:"name"`
	QtySold int64           `json:"qty_sold"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopSKUs lists best-selling SKUs by quantity over a window.
func (r AnalyticsRepo) TopSKUs(ctx context.Context, from, to time.Time, limit, offset int32) ([]TopSKU, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT l.sku, MAX(l.name), SUM(l.qty), SUM(l.line_total)::text
		FROM sales s
		JOIN sale_lines l ON l.sale_id = s.id
		WHERE s.tenant_id = $1
		  AND s.created_at >= $2 AND s.created_at < $3
		  AND s.status NOT IN ('canceled', 'returned', 'refunded')
		GROUP BY l.sku
		ORDER BY SUM(l.qty) DESC, l.sku
		LIMIT $4 OFFSET $5`, tid, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopSKU
	for rows.Next() {
		var t TopSKU
		var revenue string
		if err := rows.Scan(&t.SKU, &t.Name, &t.QtySold, &revenue); err != nil {
			return nil, err
		}
		if t.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
