// Package memory provides in-memory store implementations for tests
// and runs that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OHLCV // keyed by symbol|timeframe|timestamp
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.OHLCV),
	}
}

func barKey(symbol string, timeframe domain.Timeframe, ts time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, timeframe, ts.UnixMilli())
}

// InsertBulk adds multiple bars atomically. Fails entire batch on any
// duplicate (symbol, timeframe, timestamp).
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.OHLCV) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.Timeframe, b.Timestamp)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		copy := *b
		s.data[barKey(b.Symbol, b.Timeframe, b.Timestamp)] = &copy
	}

	return nil
}

// GetBySymbolRange retrieves bars for a symbol/timeframe within
// [start, end) ordered by timestamp ASC.
func (s *BarStore) GetBySymbolRange(_ context.Context, symbol string, timeframe domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OHLCV
	for _, b := range s.data {
		if b.Symbol != symbol || b.Timeframe != timeframe {
			continue
		}
		if b.Timestamp.Before(start) || !b.Timestamp.Before(end) {
			continue
		}
		copy := *b
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
