package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/pricing"
)

// ErrProductNotFound is returned when a SKU does not exist for the tenant.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog row with its commercial terms.
type Product struct {
	SKU             string
	Name            string
	UnitCost        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// ProductsRepo stores tenant-scoped catalog rows. Money columns travel as
// text so decimals survive the round trip without float conversion.
type ProductsRepo struct {
	DB *DB
}

const productColumns = `sku, name, unit_cost::text, unit_price::text, discount_percent::text`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var cost, price string
	var discount *string
	if err := row.Scan(&p.SKU, &p.Name, &cost, &price, &discount); err != nil {
		return Product{}, err
	}
	var err error
	if p.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return Product{}, err
	}
	if p.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return Product{}, err
	}
	if discount != nil {
		d, err := decimal.NewFromString(*discount)
		if err != nil {
			return Product{}, err
		}
		p.DiscountPercent = &d
	}
	return p, nil
}

// List returns paginated tenant catalog rows.
func (r ProductsRepo) List(ctx context.Context, limit, offset int32) ([]Product, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1
		ORDER BY sku
		LIMIT $2 OFFSET $3`, tid, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one tenant catalog row by SKU.
func (r ProductsRepo) Get(ctx context.Context, sku string) (Product, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return Product{}, err
	}
	p, err := scanProduct(r.DB.q(ctx).QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1 AND sku = $2`, tid, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	}
	return p, err
}

// Upsert inserts or replaces a catalog row.
func (r ProductsRepo) Upsert(ctx context.Context, p Product) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	var discount *string
	if p.DiscountPercent != nil {
		s := p.DiscountPercent.String()
		discount = &s
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO products (tenant_id, sku, name, unit_cost, unit_price, discount_percent)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)
		ON CONFLICT (tenant_id, sku)
		DO UPDATE SET name = EXCLUDED.name,
		              unit_cost = EXCLUDED.unit_cost,
		              unit_price = EXCLUDED.unit_price,
		              discount_percent = EXCLUDED.discount_percent`,
		tid, p.SKU, p.Name, p.UnitCost.String(), p.UnitPrice.String(), discount)
	return err
}

// Snapshots captures pricing terms for the given SKUs in one read. Missing
// SKUs are simply absent from the result; the sale engine treats that as
// unknown.
func (r ProductsRepo) Snapshots(ctx context.Context, skus []string) (map[string]pricing.Snapshot, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE tenant_id = $1 AND sku = ANY($2)`, tid, skus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]pricing.Snapshot, len(skus))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.SKU] = pricing.Snapshot{
			SKU:             p.SKU,
			Name:            p.Name,
			UnitCost:        p.UnitCost,
			UnitPrice:       p.UnitPrice,
			DiscountPercent: p.DiscountPercent,
		}
	}
	return out, rows.Err()
}
