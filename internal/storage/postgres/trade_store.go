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

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, run_id, order_id, symbol, side,
		quantity, price, commission, slippage, pnl, executed_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11
	)
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "insert_trades", time.Since(start).Seconds(), err)
	}(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTradeQuery,
			t.TradeID, t.RunID, t.OrderID, t.Symbol, string(t.Side),
			t.Quantity, t.Price, t.Commission, t.Slippage, t.PnL, t.ExecutedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades for a run, ordered by executed_at ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) (trades []*domain.Trade, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "select_trades", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT
			trade_id, run_id, order_id, symbol, side,
			quantity, price, commission, slippage, pnl, executed_at
		FROM trades
		WHERE run_id = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var side string

		err := rows.Scan(
			&t.TradeID, &t.RunID, &t.OrderID, &t.Symbol, &side,
			&t.Quantity, &t.Price, &t.Commission, &t.Slippage, &t.PnL, &t.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.Side = domain.OrderSide(side)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
