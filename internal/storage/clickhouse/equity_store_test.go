package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testPoint(offset int, equity string) domain.EquityPoint {
	return domain.EquityPoint{
		Timestamp: barBase.Add(time.Duration(offset) * time.Hour),
		Equity:    decimal.RequireFromString(equity),
		Cash:      decimal.RequireFromString(equity),
		Drawdown:  decimal.Zero,
	}
}

func TestEquityCurveStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquityCurveStore(conn)
	ctx := context.Background()

	points := []domain.EquityPoint{
		testPoint(0, "10000"),
		testPoint(1, "10150.125"),
		testPoint(2, "10300.0625"),
	}
	require.NoError(t, store.InsertBulk(ctx, "run1", points))

	got, err := store.GetByRunID(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	require.True(t, got[1].Equity.Equal(decimal.RequireFromString("10150.125")))
}

func TestEquityCurveStore_DuplicateTimestamp(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquityCurveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", []domain.EquityPoint{testPoint(0, "10000")}))
	err := store.InsertBulk(ctx, "run1", []domain.EquityPoint{testPoint(0, "10000")})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEquityCurveStore_RunIsolation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquityCurveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run1", []domain.EquityPoint{testPoint(0, "10000")}))
	require.NoError(t, store.InsertBulk(ctx, "run2", []domain.EquityPoint{testPoint(0, "20000")}))

	got, err := store.GetByRunID(ctx, "run2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Equity.Equal(decimal.RequireFromString("20000")))
}

func TestEquityCurveStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquityCurveStore(conn)
	err := store.InsertBulk(context.Background(), "", []domain.EquityPoint{testPoint(0, "10000")})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}
