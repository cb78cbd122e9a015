package clickhouse

import (
	"context"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (run_id, timestamp).
func (s *EquityCurveStore) InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_equity", time.Since(start).Seconds(), err)
	}(time.Now())

	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		ms := p.Timestamp.UnixMilli()
		if _, exists := seen[ms]; exists {
			return storage.ErrDuplicateKey
		}
		seen[ms] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, runID, p.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_curves (
			run_id, timestamp_ms, equity, cash, drawdown
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			runID, uint64(p.Timestamp.UnixMilli()),
			p.Equity, p.Cash, p.Drawdown,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) (points []domain.EquityPoint, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "select_equity", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT timestamp_ms, equity, cash, drawdown
		FROM equity_curves
		WHERE run_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query equity curve by run id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.EquityPoint
		var timestampMs uint64

		if err := rows.Scan(&timestampMs, &p.Equity, &p.Cash, &p.Drawdown); err != nil {
			return nil, fmt.Errorf("scan equity point row: %w", err)
		}

		p.Timestamp = time.UnixMilli(int64(timestampMs)).UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity point rows: %w", err)
	}

	return points, nil
}

// exists checks if a point with the given key exists.
func (s *EquityCurveStore) exists(ctx context.Context, runID string, ts time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM equity_curves
		WHERE run_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, uint64(ts.UnixMilli())).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
