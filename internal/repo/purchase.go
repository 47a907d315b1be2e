package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/supplier"
)

// PurchaseRepo stores suppliers and purchase orders per tenant.
type PurchaseRepo struct {
	DB *DB
}

// InsertSupplier creates a supplier row.
func (r PurchaseRepo) InsertSupplier(ctx context.Context, s supplier.Supplier) (supplier.Supplier, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return supplier.Supplier{}, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO suppliers (id, tenant_id, name, email, phone)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, tid, s.Name, s.Email, s.Phone)
	if err != nil {
		return supplier.Supplier{}, fmt.Errorf("insert supplier: %w", err)
	}
	return s, nil
}

// ListSuppliers returns the tenant's suppliers ordered by name.
func (r PurchaseRepo) ListSuppliers(ctx context.Context) ([]supplier.Supplier, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, name, email, phone
		FROM suppliers
		WHERE tenant_id = $1
		ORDER BY name`, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []supplier.Supplier
	for rows.Next() {
		var s supplier.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertOrder writes a purchase order header and its lines.
func (r PurchaseRepo) InsertOrder(ctx context.Context, po supplier.PurchaseOrder) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO purchase_orders (id, tenant_id, supplier_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		po.ID, tid, po.SupplierID, string(po.Status), po.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for _, ln := range po.Lines {
		_, err = r.DB.q(ctx).Exec(ctx, `
			INSERT INTO purchase_order_lines (po_id, sku, qty, unit_cost)
			VALUES ($1, $2, $3, $4::numeric)`,
			po.ID, ln.SKU, ln.Qty, ln.UnitCost.String())
		if err != nil {
			return fmt.Errorf("insert purchase order line %s: %w", ln.SKU, err)
		}
	}
	return nil
}

// GetOrder loads one purchase order with its lines.
func (r PurchaseRepo) GetOrder(ctx context.Context, id uuid.UUID) (supplier.PurchaseOrder, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return supplier.PurchaseOrder{}, err
	}
	var po supplier.PurchaseOrder
	var status string
	err = r.DB.q(ctx).QueryRow(ctx, `
		SELECT id, supplier_id, status, created_at
		FROM purchase_orders
		WHERE tenant_id = $1 AND id = $2`, tid, id).
		Scan(&po.ID, &po.SupplierID, &status, &po.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return supplier.PurchaseOrder{}, supplier.ErrOrderNotFound
	}
	if err != nil {
		return supplier.PurchaseOrder{}, err
	}
	po.Status = supplier.OrderStatus(status)

	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT sku, qty, unit_cost::text
		FROM purchase_order_lines
		WHERE po_id = $1
		ORDER BY sku`, id)
	if err != nil {
		return supplier.PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln supplier.OrderLine
		var cost string
		if err := rows.Scan(&ln.SKU, &ln.Qty, &cost); err != nil {
			return supplier.PurchaseOrder{}, err
		}
		if ln.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return supplier.PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, ln)
	}
	return po, rows.Err()
}

// UpdateOrderStatus moves a purchase order to the given status using the
// current status as a compare-and-swap guard.
func (r PurchaseRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to supplier.OrderStatus) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := r.DB.q(ctx).Exec(ctx, `
		UPDATE purchase_orders
		SET status = $4
		WHERE tenant_id = $1 AND id = $2 AND status = $3`,
		tid, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return supplier.ErrInvalidOrderStatus
	}
	return nil
}

// ListOrders returns purchase orders newest first, optionally by status.
func (r PurchaseRepo) ListOrders(ctx context.Context, status *string, limit, offset int32) ([]supplier.PurchaseOrder, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, supplier_id, status, created_at
		FROM purchase_orders
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, tid, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []supplier.PurchaseOrder
	for rows.Next() {
		var po supplier.PurchaseOrder
		var st string
		if err := rows.Scan(&po.ID, &po.SupplierID, &st, &po.CreatedAt); err != nil {
			return nil, err
		}
		po.Status = supplier.OrderStatus(st)
		out = append(out, po)
	}
	return out, rows.Err()
}
