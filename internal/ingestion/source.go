// Package ingestion captures live chain events (blocks, pending
// transactions) over websocket and hands them to the event model. The
// capture side only observes and classifies; interpretation belongs to
// downstream consumers.
package ingestion

import (
	"context"

	"backtest-lab/internal/events"
)

// Chain identifiers understood by the capture sources.
const (
	ChainSolana = "solana"
	ChainEVM    = "evm"
)

// Captured events sort into the market-data slot of the queue: they
// carry observed facts, not decisions.
const priorityChainEvent = 1

// Source produces chain events until its context is cancelled or the
// upstream connection is permanently lost.
type Source interface {
	// Run connects and captures until ctx is done. The events channel
	// is closed when Run returns.
	Run(ctx context.Context) error

	// Events returns the channel capture results are delivered on.
	Events() <-chan events.Event
}

// StubSource replays a fixed slice of events. Tests and offline replay
// use it in place of a live websocket.
type StubSource struct {
	Queued []events.Event
	Err    error

	ch chan events.Event
}

var _ Source = (*StubSource)(nil)

// NewStubSource creates a stub that will replay the given events.
func NewStubSource(queued ...events.Event) *StubSource {
	return &StubSource{
		Queued: queued,
		ch:     make(chan events.Event, len(queued)+1),
	}
}

// Run delivers the queued events in order, then returns Err.
func (s *StubSource) Run(ctx context.Context) error {
	defer close(s.ch)
	for _, ev := range s.Queued {
		select {
		case s.ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.Err != nil {
		return s.Err
	}
	return nil
}

// Events implements Source.
func (s *StubSource) Events() <-chan events.Event { return s.ch }
