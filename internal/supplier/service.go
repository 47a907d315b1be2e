package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jobelinc/stocktrack/internal/events"
	"github.com/jobelinc/stocktrack/internal/stock"
)

var (
	// ErrOrderNotFound is returned when a purchase order id does not exist.
	ErrOrderNotFound = errors.New("purchase order not found")
	// ErrInvalidOrderStatus is returned for disallowed purchase order moves.
	ErrInvalidOrderStatus = errors.New("purchase order status transition not allowed")
	// ErrNoOrderChange is returned when a move names the current status.
	ErrNoOrderChange = errors.New("purchase order status unchanged")
	// ErrEmptyOrder is returned when an order carries no lines.
	ErrEmptyOrder = errors.New("purchase order has no lines")
)

// Supplier is a vendor the shop restocks from.
type Supplier struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// OrderStatus is the purchase order lifecycle state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderReceived  OrderStatus = "received"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderLine is one requested SKU on a purchase order.
type OrderLine struct {
	SKU      string
	Qty      int
	UnitCost decimal.Decimal
}

// PurchaseOrder is a restock request against one supplier.
type PurchaseOrder struct {
	ID         uuid.UUID
	SupplierID uuid.UUID
	Status     OrderStatus
	Lines      []OrderLine
	CreatedAt  time.Time
}

// Store is the purchase order persistence contract.
type Store interface {
	InsertSupplier(ctx context.Context, s Supplier) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	InsertOrder(ctx context.Context, po PurchaseOrder) error
	GetOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) error
	ListOrders(ctx context.Context, status *string, limit, offset int32) ([]PurchaseOrder, error)
}

// Atomic matches the sale engine's atomic scope contract.
type Atomic interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages suppliers and purchase orders. Receiving an order puts its
// quantities on the shelf and clears out-of-stock flags in the same atomic
// scope as the status change.
type Service struct {
	Store  Store
	Stock  stock.Store
	Atomic Atomic
	Events *events.Bus
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateOrder opens a pending purchase order.
func (s *Service) CreateOrder(ctx context.Context, supplierID uuid.UUID, lines []OrderLine) (PurchaseOrder, error) {
	if len(lines) == 0 {
		return PurchaseOrder{}, ErrEmptyOrder
	}
	for _, ln := range lines {
		if ln.Qty <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: %s", stock.ErrInvalidQuantity, ln.SKU)
		}
	}
	po := PurchaseOrder{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Status:     OrderPending,
		Lines:      lines,
		CreatedAt:  s.now(),
	}
	if err := s.Store.InsertOrder(ctx, po); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// Receive marks a pending order received and restocks its lines.
func (s *Service) Receive(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, err := s.transition(ctx, id, OrderReceived, true)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicPurchaseReceived, po.ID, map[string]any{
			"purchaseOrderId": po.ID.String(),
			"lines":           len(po.Lines),
		})
	}
	return po, nil
}

// Cancel voids a pending order without touching stock.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return s.transition(ctx, id, OrderCancelled, false)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to OrderStatus, restock bool) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.Atomic.Run(ctx, func(ctx context.Context) error {
		current, err := s.Store.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == to {
			return ErrNoOrderChange
		}
		if current.Status != OrderPending {
			return ErrInvalidOrderStatus
		}
		if err := s.Store.UpdateOrderStatus(ctx, id, current.Status, to); err != nil {
			return err
		}
		if restock {
			adds := make([]stock.Request, 0, len(current.Lines))
			for _, ln := range current.Lines {
				adds = append(adds, stock.Request{SKU: ln.SKU, Qty: ln.Qty})
			}
			if _, err := s.Stock.Restock(ctx, adds); err != nil {
				return err
			}
		}
		po = current
		po.Status = to
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}
