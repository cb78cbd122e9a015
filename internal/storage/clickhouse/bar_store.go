package clickhouse

import (
	"context"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (symbol, timeframe, timestamp). MergeTree does not enforce
// uniqueness, so duplicates are checked explicitly before the batch.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.OHLCV) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_bars", time.Since(start).Seconds(), err)
	}(time.Now())

	type key struct {
		symbol    string
		timeframe domain.Timeframe
		ms        int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Timeframe, b.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.Timeframe, b.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, string(b.Timeframe), uint64(b.Timestamp.UnixMilli()),
			b.Open, b.High, b.Low, b.Close, b.Volume,
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

// GetBySymbolRange retrieves bars for a symbol/timeframe within
// [start, end) ordered by timestamp ASC.
func (s *BarStore) GetBySymbolRange(ctx context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) (bars []*domain.OHLCV, err error) {
	defer func(began time.Time) {
		observability.RecordDBQuery("clickhouse", "select_bars", time.Since(began).Seconds(), err)
	}(time.Now())

	query := `
		SELECT symbol, timeframe, timestamp_ms, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms < ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, string(timeframe), uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query bars by range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, symbol string, timeframe domain.Timeframe, ts time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, string(timeframe), uint64(ts.UnixMilli())).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.OHLCV, error) {
	var bars []*domain.OHLCV

	for rows.Next() {
		var b domain.OHLCV
		var timeframe string
		var timestampMs uint64

		err := rows.Scan(
			&b.Symbol, &timeframe, &timestampMs,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.Timeframe = domain.Timeframe(timeframe)
		b.Timestamp = time.UnixMilli(int64(timestampMs)).UTC()
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
