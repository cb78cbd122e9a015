// Package storage defines the persistence seams. Implementations live
// in the memory, postgres and clickhouse subpackages: PostgreSQL holds
// run records, trades and walk-forward windows; ClickHouse holds the
// high-volume bar and equity-curve series.
package storage

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
)

// BarStore provides access to OHLCV bar storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate
	// (symbol, timeframe, timestamp).
	InsertBulk(ctx context.Context, bars []*domain.OHLCV) error

	// GetBySymbolRange retrieves bars for a symbol/timeframe within
	// [start, end) ordered by timestamp ASC.
	GetBySymbolRange(ctx context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error)
}

// TradeStore provides access to trade storage.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on
	// any duplicate trade_id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByRunID retrieves all trades for a run, ordered by executed_at ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// RunStore provides access to backtest run summaries.
type RunStore interface {
	// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*RunRecord, error)
}

// WalkForwardStore provides access to walk-forward window results.
type WalkForwardStore interface {
	// InsertWindows adds the window results of one analysis atomically.
	InsertWindows(ctx context.Context, runID string, windows []*domain.WindowResult) error

	// GetByRunID retrieves window results ordered by in_sample_start ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.WindowResult, error)
}

// EquityCurveStore provides access to equity-curve point storage.
type EquityCurveStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (run_id, timestamp).
	InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error

	// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}

// RunRecord is the persisted summary of one backtest run.
type RunRecord struct {
	RunID          string
	Strategy       string
	Symbols        []string
	Timeframe      domain.Timeframe
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital string // decimal string, exact
	TotalReturn    string
	MaxDrawdown    string
	SharpeRatio    string
	TotalTrades    int
	CreatedAt      time.Time
}
