package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

func TestAdmissionStore_InsertBulkAndGetByMint(t *testing.T) {
	conn := setupTestDB(t)
	store := NewAdmissionStore(conn)
	ctx := context.Background()

	records := []*domain.AdmissionRecord{
		{SessionID: "s1", Mint: "M1", DevAddress: "D1", Accepted: false, Step: "holders", Reason: "holders 3 < 10", CreatedAt: 900, DecidedAt: 2000},
		{SessionID: "s1", Mint: "M1", DevAddress: "D1", Accepted: true, DecidedAt: 1000},
		{SessionID: "s1", Mint: "M2", Accepted: true, DecidedAt: 1500},
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByMint(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Accepted)
	assert.Equal(t, int64(1000), got[0].DecidedAt)
	assert.False(t, got[1].Accepted)
	assert.Equal(t, "holders", got[1].Step)
	assert.Equal(t, "holders 3 < 10", got[1].Reason)
	assert.Equal(t, int64(900), got[1].CreatedAt)
}

func TestAdmissionStore_InsertValidates(t *testing.T) {
	conn := setupTestDB(t)
	store := NewAdmissionStore(conn)
	ctx := context.Background()

	err := store.Insert(ctx, &domain.AdmissionRecord{SessionID: "s1"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	require.NoError(t, store.InsertBulk(ctx, nil))

	got, err := store.GetByMint(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@db.local/audit")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.local:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "audit", opts.Auth.Database)

	_, err = parseDSN("postgres://x")
	assert.Error(t, err)
}
