package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// WalkForwardStore implements storage.WalkForwardStore using PostgreSQL.
// Per-leg metrics are stored as JSONB: windows are written once and
// read back whole, never queried by metric.
type WalkForwardStore struct {
	pool *Pool
}

// NewWalkForwardStore creates a new WalkForwardStore.
func NewWalkForwardStore(pool *Pool) *WalkForwardStore {
	return &WalkForwardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalkForwardStore = (*WalkForwardStore)(nil)

// InsertWindows adds the window results of one analysis atomically.
func (s *WalkForwardStore) InsertWindows(ctx context.Context, runID string, windows []*domain.WindowResult) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(windows) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "insert_windows", time.Since(start).Seconds(), err)
	}(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO walkforward_windows (
			run_id, window_index,
			in_sample_start, in_sample_end, out_sample_start, out_sample_end,
			in_sample_metrics, out_sample_metrics
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8
		)
	`

	for i, w := range windows {
		if w == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			runID, i,
			w.InSampleStart, w.InSampleEnd, w.OutSampleStart, w.OutSampleEnd,
			w.InSampleMetrics, w.OutSampleMetrics,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert walkforward window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves window results ordered by in_sample_start ASC.
func (s *WalkForwardStore) GetByRunID(ctx context.Context, runID string) (result []*domain.WindowResult, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "select_windows", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT
			in_sample_start, in_sample_end, out_sample_start, out_sample_end,
			in_sample_metrics, out_sample_metrics
		FROM walkforward_windows
		WHERE run_id = $1
		ORDER BY in_sample_start ASC, window_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get walkforward windows by run id: %w", err)
	}
	defer rows.Close()

	windows, err := scanWindowResults(rows)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, storage.ErrNotFound
	}
	return windows, nil
}

func scanWindowResults(rows pgx.Rows) ([]*domain.WindowResult, error) {
	var windows []*domain.WindowResult

	for rows.Next() {
		var w domain.WindowResult
		err := rows.Scan(
			&w.InSampleStart, &w.InSampleEnd, &w.OutSampleStart, &w.OutSampleEnd,
			&w.InSampleMetrics, &w.OutSampleMetrics,
		)
		if err != nil {
			return nil, fmt.Errorf("scan walkforward window row: %w", err)
		}
		windows = append(windows, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate walkforward window rows: %w", err)
	}

	return windows, nil
}
