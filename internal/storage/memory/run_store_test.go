package memory

import (
	"context"
	"errors"
	"testing"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testRun(runID string) *storage.RunRecord {
	return &storage.RunRecord{
		RunID:          runID,
		Strategy:       "sma_cross",
		Symbols:        []string{"SOL/USDC"},
		Timeframe:      domain.Timeframe1d,
		StartDate:      barBase,
		EndDate:        barBase.AddDate(0, 0, 90),
		InitialCapital: "10000",
		TotalReturn:    "0.19",
		MaxDrawdown:    "0.05",
		SharpeRatio:    "1.2",
		TotalTrades:    4,
		CreatedAt:      barBase,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	r := testRun("run1")
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RunID != r.RunID {
		t.Errorf("RunID mismatch: got %s, want %s", got.RunID, r.RunID)
	}
	if got.TotalReturn != r.TotalReturn {
		t.Errorf("TotalReturn mismatch: got %s, want %s", got.TotalReturn, r.TotalReturn)
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testRun("run1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_NotFound(t *testing.T) {
	store := NewRunStore()
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_ReturnsCopies(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "run1")
	got.Symbols[0] = "mutated"

	again, _ := store.GetByID(ctx, "run1")
	if again.Symbols[0] != "SOL/USDC" {
		t.Error("mutating a returned record leaked into the store")
	}
}
