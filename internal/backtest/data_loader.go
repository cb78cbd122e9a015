package backtest

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// DataLoader supplies historical bars to an engine. Implementations
// are passed through the walk-forward analyzer unexamined; the only
// requirement is that repeated loads over the same range return the
// same bars, since every leg constructs a fresh engine around the
// same loader.
type DataLoader interface {
	// LoadBars returns bars for symbol/timeframe within [start, end),
	// ordered by timestamp ASC.
	LoadBars(ctx context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error)
}

// StoreLoader is a DataLoader backed by a BarStore. Construction is
// cheap (it only holds the store handle), which is what keeps the
// fresh-engine-per-leg design affordable.
type StoreLoader struct {
	bars storage.BarStore
}

// NewStoreLoader creates a DataLoader over a bar store.
func NewStoreLoader(bars storage.BarStore) *StoreLoader {
	return &StoreLoader{bars: bars}
}

// LoadBars implements DataLoader.
func (l *StoreLoader) LoadBars(ctx context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error) {
	return l.bars.GetBySymbolRange(ctx, symbol, timeframe, start, end)
}

// Ensure StoreLoader implements DataLoader
var _ DataLoader = (*StoreLoader)(nil)
