package backtest

import (
	"context"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/events"
)

// Strategy defines the hook an engine calls for each market-data
// event, in queue order. A non-nil signal enters the order pipeline.
type Strategy interface {
	// OnMarketData is called for each market-data event in order.
	// Returns a signal or nil if no action.
	OnMarketData(ctx context.Context, event *events.MarketDataEvent) (*domain.Signal, error)

	// Name returns the strategy identifier.
	Name() string
}

// NewStrategy builds a strategy from config. Unknown names fall back
// to the SMA crossover with default parameters.
func NewStrategy(cfg domain.StrategyConfig) Strategy {
	switch cfg.Name {
	case "sma_cross", "":
		return NewSMACrossStrategy(cfg.Parameters)
	default:
		return NewSMACrossStrategy(cfg.Parameters)
	}
}

// SMA crossover defaults.
const (
	defaultFastWindow = 10
	defaultSlowWindow = 30
)

// SMACrossStrategy emits a buy when the fast moving average crosses
// above the slow one and a sell on the opposite cross. State is
// per-symbol and private to the owning engine.
type SMACrossStrategy struct {
	fast, slow int
	state      map[string]*smaState
}

type smaState struct {
	closes   []decimal.Decimal
	fastOver bool // fast was above slow at the previous bar
	primed   bool
}

// NewSMACrossStrategy creates the strategy. Parameters: "fast", "slow"
// (bar counts); non-positive values fall back to defaults.
func NewSMACrossStrategy(params map[string]float64) *SMACrossStrategy {
	fast := defaultFastWindow
	slow := defaultSlowWindow
	if v, ok := params["fast"]; ok && v > 0 {
		fast = int(v)
	}
	if v, ok := params["slow"]; ok && v > 0 {
		slow = int(v)
	}
	if fast >= slow {
		fast, slow = defaultFastWindow, defaultSlowWindow
	}
	return &SMACrossStrategy{
		fast:  fast,
		slow:  slow,
		state: make(map[string]*smaState),
	}
}

// Name implements Strategy.
func (s *SMACrossStrategy) Name() string { return "sma_cross" }

// OnMarketData implements Strategy.
func (s *SMACrossStrategy) OnMarketData(_ context.Context, event *events.MarketDataEvent) (*domain.Signal, error) {
	if event.Bar == nil {
		return nil, nil
	}

	st, ok := s.state[event.Symbol]
	if !ok {
		st = &smaState{}
		s.state[event.Symbol] = st
	}

	st.closes = append(st.closes, event.Bar.Close)
	if len(st.closes) > s.slow {
		st.closes = st.closes[1:]
	}
	if len(st.closes) < s.slow {
		return nil, nil
	}

	fastAvg := average(st.closes[len(st.closes)-s.fast:])
	slowAvg := average(st.closes)
	fastOver := fastAvg.GreaterThan(slowAvg)

	defer func() {
		st.fastOver = fastOver
		st.primed = true
	}()

	if !st.primed || fastOver == st.fastOver {
		return nil, nil
	}

	side := domain.OrderSideSell
	reason := "sma cross down"
	if fastOver {
		side = domain.OrderSideBuy
		reason = "sma cross up"
	}
	return &domain.Signal{
		Symbol:    event.Symbol,
		Side:      side,
		Strength:  decimal.NewFromInt(1),
		Reason:    reason,
		Timestamp: event.Timestamp(),
	}, nil
}

func average(xs []decimal.Decimal) decimal.Decimal {
	if len(xs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, x := range xs {
		sum = sum.Add(x)
	}
	return sum.Div(decimal.NewFromInt(int64(len(xs))))
}

// Ensure SMACrossStrategy implements Strategy
var _ Strategy = (*SMACrossStrategy)(nil)
