package backtest

import (
	"context"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/events"
)

// StubStrategy is a no-op strategy for testing.
// It collects events for verification without generating signals.
type StubStrategy struct {
	events []*events.MarketDataEvent
}

// NewStubStrategy creates a new stub strategy.
func NewStubStrategy() *StubStrategy {
	return &StubStrategy{
		events: make([]*events.MarketDataEvent, 0),
	}
}

// OnMarketData collects events for verification.
// Always returns nil signal (no action).
func (s *StubStrategy) OnMarketData(_ context.Context, event *events.MarketDataEvent) (*domain.Signal, error) {
	s.events = append(s.events, event)
	return nil, nil
}

// Name returns the strategy identifier.
func (s *StubStrategy) Name() string {
	return "stub"
}

// Events returns collected events for test verification.
func (s *StubStrategy) Events() []*events.MarketDataEvent {
	return s.events
}

// Ensure StubStrategy implements Strategy
var _ Strategy = (*StubStrategy)(nil)
