package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jobelinc/stocktrack/internal/tenant"
)

func TestTenantUUIDFromContext(t *testing.T) {
	id := uuid.NewString()
	ctx := tenant.With(context.Background(), id)

	tid, err := tenantUUIDFromContext(ctx)
	require.NoError(t, err)
	require.True(t, tid.Valid)
	require.Equal(t, id, uuid.UUID(tid.Bytes).String())
}

func TestTenantUUIDMissing(t *testing.T) {
	_, err := tenantUUIDFromContext(context.Background())
	require.ErrorIs(t, err, ErrTenantMissing)
}

func TestTenantUUIDInvalid(t *testing.T) {
	ctx := tenant.With(context.Background(), "not-a-uuid")
	_, err := tenantUUIDFromContext(ctx)
	require.ErrorIs(t, err, ErrTenantInvalid)
}
