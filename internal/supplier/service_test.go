package supplier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/sale"
	"github.com/jobelinc/stocktrack/internal/stock"
	"github.com/jobelinc/stocktrack/internal/supplier"
)

func newService() (*supplier.Service, *stock.MemoryStore) {
	ledger := stock.NewMemoryStore()
	ledger.Put(stock.Level{SKU: "SKU-1", Quantity: 1})
	return &supplier.Service{
		Store:  supplier.NewMemoryStore(),
		Stock:  ledger,
		Atomic: sale.NopAtomic{},
	}, ledger
}

func TestReceiveRestocks(t *testing.T) {
	svc, ledger := newService()
	po, err := svc.CreateOrder(context.Background(), uuid.New(), []supplier.OrderLine{
		{SKU: "SKU-1", Qty: 9, UnitCost: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	require.Equal(t, supplier.OrderPending, po.Status)

	received, err := svc.Receive(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, supplier.OrderReceived, received.Status)

	levels, err := ledger.Levels(context.Background(), []string{"SKU-1"})
	require.NoError(t, err)
	require.Equal(t, 10, levels["SKU-1"].Quantity)
}

func TestReceiveTwiceRejected(t *testing.T) {
	svc, _ := newService()
	po, err := svc.CreateOrder(context.Background(), uuid.New(), []supplier.OrderLine{{SKU: "SKU-1", Qty: 1}})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), po.ID)
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), po.ID)
	require.ErrorIs(t, err, supplier.ErrNoOrderChange)
}

func TestCancelLeavesStockAlone(t *testing.T) {
	svc, ledger := newService()
	po, err := svc.CreateOrder(context.Background(), uuid.New(), []supplier.OrderLine{{SKU: "SKU-1", Qty: 4}})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, supplier.OrderCancelled, cancelled.Status)

	levels, err := ledger.Levels(context.Background(), []string{"SKU-1"})
	require.NoError(t, err)
	require.Equal(t, 1, levels["SKU-1"].Quantity)

	_, err = svc.Receive(context.Background(), po.ID)
	require.ErrorIs(t, err, supplier.ErrInvalidOrderStatus)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CreateOrder(context.Background(), uuid.New(), nil)
	require.ErrorIs(t, err, supplier.ErrEmptyOrder)

	_, err = svc.CreateOrder(context.Background(), uuid.New(), []supplier.OrderLine{{SKU: "SKU-1", Qty: 0}})
	require.ErrorIs(t, err, stock.ErrInvalidQuantity)
}
