package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testWindow(startOffset int) *domain.WindowResult {
	start := barBase.AddDate(0, 0, startOffset)
	return &domain.WindowResult{
		WalkForwardWindow: domain.WalkForwardWindow{
			InSampleStart:  start,
			InSampleEnd:    start.AddDate(0, 0, 24),
			OutSampleStart: start.AddDate(0, 0, 24),
			OutSampleEnd:   start.AddDate(0, 0, 30),
		},
		InSampleMetrics:  &domain.PerformanceMetrics{TotalReturn: decimal.RequireFromString("0.10")},
		OutSampleMetrics: &domain.PerformanceMetrics{TotalReturn: decimal.RequireFromString("0.05")},
	}
}

func TestWalkForwardStore_InsertAndGet(t *testing.T) {
	store := NewWalkForwardStore()
	ctx := context.Background()

	windows := []*domain.WindowResult{testWindow(14), testWindow(0), testWindow(7)}
	if err := store.InsertWindows(ctx, "run1", windows); err != nil {
		t.Fatalf("InsertWindows failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].InSampleStart.Before(got[i-1].InSampleStart) {
			t.Errorf("windows not ordered by in_sample_start ASC at index %d", i)
		}
	}
}

func TestWalkForwardStore_DuplicateRun(t *testing.T) {
	store := NewWalkForwardStore()
	ctx := context.Background()

	if err := store.InsertWindows(ctx, "run1", []*domain.WindowResult{testWindow(0)}); err != nil {
		t.Fatalf("InsertWindows failed: %v", err)
	}
	err := store.InsertWindows(ctx, "run1", []*domain.WindowResult{testWindow(7)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestWalkForwardStore_NotFound(t *testing.T) {
	store := NewWalkForwardStore()
	if _, err := store.GetByRunID(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWalkForwardStore_InvalidInput(t *testing.T) {
	store := NewWalkForwardStore()
	ctx := context.Background()

	if err := store.InsertWindows(ctx, "", []*domain.WindowResult{testWindow(0)}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty run_id, got %v", err)
	}
	if err := store.InsertWindows(ctx, "run1", []*domain.WindowResult{nil}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil window, got %v", err)
	}
}
