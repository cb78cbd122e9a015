package postgres

import (
	"context"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *storage.RunRecord) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "insert_run", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		INSERT INTO runs (
			run_id, strategy, symbols, timeframe, start_date, end_date,
			initial_capital, total_return, max_drawdown, sharpe_ratio,
			total_trades, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Strategy, r.Symbols, string(r.Timeframe), r.StartDate, r.EndDate,
		r.InitialCapital, r.TotalReturn, r.MaxDrawdown, r.SharpeRatio,
		r.TotalTrades, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (rec *storage.RunRecord, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "select_run", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT
			run_id, strategy, symbols, timeframe, start_date, end_date,
			initial_capital, total_return, max_drawdown, sharpe_ratio,
			total_trades, created_at
		FROM runs
		WHERE run_id = $1
	`

	var r storage.RunRecord
	var timeframe string
	err = s.pool.QueryRow(ctx, query, runID).Scan(
		&r.RunID, &r.Strategy, &r.Symbols, &timeframe, &r.StartDate, &r.EndDate,
		&r.InitialCapital, &r.TotalReturn, &r.MaxDrawdown, &r.SharpeRatio,
		&r.TotalTrades, &r.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}

	r.Timeframe = domain.Timeframe(timeframe)
	return &r, nil
}
