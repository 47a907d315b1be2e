package basket_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/basket"
)

func newService(t *testing.T) (*basket.Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &basket.Service{R: rdb, TTL: time.Minute}, mr
}

func TestSetLineAndGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	b, err := svc.SetLine(ctx, "b-1", "SKU-1", 2)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	require.Equal(t, 2, b.Lines[0].Qty)

	b, err = svc.SetLine(ctx, "b-1", "SKU-1", 5)
	require.NoError(t, err)
	require.Equal(t, 5, b.Lines[0].Qty)

	loaded, err := svc.Get(ctx, "b-1")
	require.NoError(t, err)
	require.Equal(t, b.Lines, loaded.Lines)
}

func TestZeroQtyRemovesLine(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SetLine(ctx, "b-1", "SKU-1", 2)
	require.NoError(t, err)
	_, err = svc.SetLine(ctx, "b-1", "SKU-2", 1)
	require.NoError(t, err)

	b, err := svc.SetLine(ctx, "b-1", "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	require.Equal(t, "SKU-2", b.Lines[0].SKU)

	// removing the last line deletes the basket entirely
	_, err = svc.SetLine(ctx, "b-1", "SKU-2", 0)
	require.NoError(t, err)
	_, err = svc.Get(ctx, "b-1")
	require.ErrorIs(t, err, basket.ErrNotFound)
}

func TestBasketExpires(t *testing.T) {
	svc, mr := newService(t)
	ctx := context.Background()

	_, err := svc.SetLine(ctx, "b-1", "SKU-1", 1)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Get(ctx, "b-1")
	require.ErrorIs(t, err, basket.ErrNotFound)
}

func TestInvalidInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SetLine(ctx, "", "SKU-1", 1)
	require.ErrorIs(t, err, basket.ErrInvalidInput)
	_, err = svc.SetLine(ctx, "b-1", "SKU-1", -1)
	require.ErrorIs(t, err, basket.ErrInvalidInput)
}
