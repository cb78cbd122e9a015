package backtest

import (
	"context"
	"time"

	"backtest-lab/internal/domain"
)

// StubLoader is an in-memory DataLoader for testing. Bars are served
// from a fixed map, filtered to [start, end).
type StubLoader struct {
	Bars map[string][]*domain.OHLCV

	// Err, when set, is returned by every LoadBars call.
	Err error
}

// NewStubLoader creates a stub loader over the given bars.
func NewStubLoader(bars map[string][]*domain.OHLCV) *StubLoader {
	return &StubLoader{Bars: bars}
}

// LoadBars implements DataLoader.
func (l *StubLoader) LoadBars(_ context.Context, symbol string, _ domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	var out []*domain.OHLCV
	for _, bar := range l.Bars[symbol] {
		if bar.Timestamp.Before(start) || !bar.Timestamp.Before(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// Ensure StubLoader implements DataLoader
var _ DataLoader = (*StubLoader)(nil)
