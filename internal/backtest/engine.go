// Package backtest implements the single-period, event-driven backtest
// engine. An engine instance is built fresh for every run, owns a
// private event queue and portfolio, and is never reused: that is what
// makes runs independent and reproducible.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/events"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/metrics"
)

// Event priorities. Lower runs first on timestamp ties, so a
// kill-switch preempts everything else scheduled for the same instant.
const (
	priorityKillSwitch = 0
	priorityMarketData = 1
	prioritySignal     = 2
	priorityOrder      = 3
	priorityFill       = 4
	priorityRisk       = 5
)

// killSwitchDrawdown halts the run when the portfolio loses this
// fraction from its peak.
var killSwitchDrawdown = decimal.RequireFromString("0.6")

// positionFraction of available cash committed per entry.
var positionFraction = decimal.RequireFromString("0.95")

// Engine executes one backtest over a date range. Zero state survives
// between runs; construct a new engine per run.
type Engine struct {
	logger        *logrus.Entry
	dataLoader    DataLoader
	slippageModel SlippageModel
	newStrategy   func(domain.StrategyConfig) Strategy

	// per-run state
	cfg           *domain.BacktestConfig
	runID         string
	queue         *events.Queue
	portfolio     *Portfolio
	strategy      Strategy
	pendingOrders []*domain.Order
	trades        []*domain.Trade
	equityCurve   []domain.EquityPoint
	currentTime   time.Time
	processed     uint64
	orderSeq      uint64
	halted        bool
}

// NewEngine creates an engine from its collaborators. The data loader
// and slippage model are opaque: they are used, never inspected.
func NewEngine(logger *logrus.Entry, dataLoader DataLoader, slippageModel SlippageModel) *Engine {
	return &Engine{
		logger:        logger,
		dataLoader:    dataLoader,
		slippageModel: slippageModel,
		newStrategy:   NewStrategy,
	}
}

// SetStrategyFactory overrides how the engine builds its strategy.
// Tests use it to inject stubs.
func (e *Engine) SetStrategyFactory(f func(domain.StrategyConfig) Strategy) {
	e.newStrategy = f
}

// Run executes a backtest with the given configuration. Nested
// validation flags on the config are ignored here: validation is
// orchestrated outside the engine, so a cloned per-leg config can
// never recurse.
func (e *Engine) Run(ctx context.Context, cfg *domain.BacktestConfig) (*domain.BacktestResult, error) {
	if !cfg.EndDate.After(cfg.StartDate) {
		return nil, fmt.Errorf("invalid date range: start %s, end %s", cfg.StartDate, cfg.EndDate)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	startedAt := time.Now()
	e.cfg = cfg
	e.runID = idhash.ComputeRunID(cfg)
	e.queue = events.NewQueue()
	e.portfolio = NewPortfolio(cfg.InitialCapital)
	e.strategy = e.newStrategy(cfg.Strategy)
	e.pendingOrders = nil
	e.trades = make([]*domain.Trade, 0)
	e.equityCurve = make([]domain.EquityPoint, 0)
	e.processed = 0
	e.orderSeq = 0
	e.halted = false

	total, err := e.loadMarketData(ctx)
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":   e.runID,
		"symbols":  len(cfg.Symbols),
		"events":   total,
		"strategy": e.strategy.Name(),
	}).Debug("starting backtest")

	for e.queue.Len() > 0 && !e.halted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event := e.queue.Pop()
		e.currentTime = event.Timestamp()
		e.processed++

		if err := e.processEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("process %s event at %s: %w", event.Type(), e.currentTime, err)
		}
	}

	result := &domain.BacktestResult{
		RunID:           e.runID,
		Config:          cfg,
		Metrics:         metrics.Calculate(e.trades, e.equityCurve, cfg.InitialCapital),
		Trades:          e.trades,
		EquityCurve:     e.equityCurve,
		StartedAt:       startedAt,
		CompletedAt:     time.Now(),
		EventsProcessed: e.processed,
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":       e.runID,
		"trades":       len(e.trades),
		"total_return": result.Metrics.TotalReturn.String(),
	}).Debug("backtest completed")

	return result, nil
}

// loadMarketData loads bars for all symbols and seeds the queue.
func (e *Engine) loadMarketData(ctx context.Context) (uint64, error) {
	var total uint64
	for _, symbol := range e.cfg.Symbols {
		bars, err := e.dataLoader.LoadBars(ctx, symbol, e.cfg.Timeframe, e.cfg.StartDate, e.cfg.EndDate)
		if err != nil {
			return 0, fmt.Errorf("load bars for %s: %w", symbol, err)
		}
		for _, bar := range bars {
			e.queue.Push(&events.MarketDataEvent{
				Base:   events.Base{At: bar.Timestamp, Prio: priorityMarketData},
				Symbol: symbol,
				Bar:    bar,
			})
			total++
		}
	}
	return total, nil
}

func (e *Engine) processEvent(ctx context.Context, event events.Event) error {
	switch ev := event.(type) {
	case *events.MarketDataEvent:
		return e.handleMarketData(ctx, ev)
	case *events.SignalEvent:
		return e.handleSignal(ev)
	case *events.OrderEvent:
		e.pendingOrders = append(e.pendingOrders, ev.Order)
		return nil
	case *events.FillEvent:
		e.handleFill(ev)
		return nil
	case *events.RiskEvent:
		e.logger.WithFields(logrus.Fields{
			"risk_type": ev.RiskType,
			"current":   ev.Current.String(),
		}).Warn("risk limit breached")
		return nil
	case *events.KillSwitchEvent:
		e.handleKillSwitch(ev)
		return nil
	default:
		return nil
	}
}

func (e *Engine) handleMarketData(ctx context.Context, ev *events.MarketDataEvent) error {
	if ev.Bar == nil {
		return nil
	}
	e.portfolio.MarkPrice(ev.Symbol, ev.Bar.Close)

	// Pending orders fill against this bar before new signals are
	// generated from it.
	for _, fill := range e.checkFills(ev) {
		e.queue.Push(fill)
	}

	signal, err := e.strategy.OnMarketData(ctx, ev)
	if err != nil {
		return fmt.Errorf("strategy %s: %w", e.strategy.Name(), err)
	}
	if signal != nil {
		e.queue.Push(&events.SignalEvent{
			Base:   events.Base{At: ev.Timestamp(), Prio: prioritySignal},
			Signal: signal,
		})
	}

	e.equityCurve = append(e.equityCurve, domain.EquityPoint{
		Timestamp: ev.Timestamp(),
		Equity:    e.portfolio.Equity(),
		Cash:      e.portfolio.Cash(),
		Drawdown:  e.portfolio.Drawdown(),
	})

	if dd := e.portfolio.Drawdown(); dd.GreaterThan(killSwitchDrawdown) {
		e.queue.Push(&events.KillSwitchEvent{
			Base:        events.Base{At: ev.Timestamp(), Prio: priorityKillSwitch},
			Reason:      "max drawdown exceeded",
			TriggerType: "drawdown",
			Threshold:   killSwitchDrawdown,
			Current:     dd,
		})
	}

	return nil
}

func (e *Engine) handleSignal(ev *events.SignalEvent) error {
	signal := ev.Signal
	held := e.portfolio.Position(signal.Symbol)

	switch signal.Side {
	case domain.OrderSideBuy:
		if held.IsPositive() {
			return nil // already long
		}
	case domain.OrderSideSell:
		if !held.IsPositive() {
			return nil // nothing to exit
		}
	}

	qty := e.positionSize(signal, held)
	if !qty.IsPositive() {
		return nil
	}

	orderType := domain.OrderTypeMarket
	if signal.Price.IsPositive() {
		orderType = domain.OrderTypeLimit
	}

	order := &domain.Order{
		ID:        e.nextOrderID(),
		Symbol:    signal.Symbol,
		Side:      signal.Side,
		Type:      orderType,
		Quantity:  qty,
		Price:     signal.Price,
		Status:    domain.OrderStatusPending,
		CreatedAt: ev.Timestamp(),
		UpdatedAt: ev.Timestamp(),
	}
	e.queue.Push(&events.OrderEvent{
		Base:  events.Base{At: ev.Timestamp(), Prio: priorityOrder},
		Order: order,
	})
	return nil
}

// nextOrderID derives the next order ID from the run's submission
// sequence. Trade IDs hash the order ID, so a random component here
// would break the reproducibility that run IDs promise.
func (e *Engine) nextOrderID() string {
	e.orderSeq++
	return idhash.ComputeOrderID(e.runID, e.orderSeq)
}

// positionSize commits a fraction of cash on entry, scaled by signal
// strength, and the full held quantity on exit.
func (e *Engine) positionSize(signal *domain.Signal, held decimal.Decimal) decimal.Decimal {
	if signal.Side == domain.OrderSideSell {
		return held
	}

	price, ok := e.portfolio.lastPrice[signal.Symbol]
	if !ok || !price.IsPositive() {
		return decimal.Zero
	}
	budget := e.portfolio.Cash().Mul(positionFraction)
	if signal.Strength.IsPositive() && signal.Strength.LessThan(decimal.NewFromInt(1)) {
		budget = budget.Mul(signal.Strength)
	}
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return budget.Div(price)
}

// checkFills fills pending orders against the incoming bar. Market
// orders fill at the open plus slippage; limit orders require the bar
// to cross the limit price.
func (e *Engine) checkFills(md *events.MarketDataEvent) []*events.FillEvent {
	var fills []*events.FillEvent
	remaining := e.pendingOrders[:0]

	for _, order := range e.pendingOrders {
		if order.Symbol != md.Symbol || !order.CreatedAt.Before(md.Timestamp()) {
			remaining = append(remaining, order)
			continue
		}

		var price decimal.Decimal
		switch order.Type {
		case domain.OrderTypeMarket:
			price = md.Bar.Open
		case domain.OrderTypeLimit:
			if order.Side == domain.OrderSideBuy && md.Bar.Low.LessThanOrEqual(order.Price) {
				price = order.Price
			} else if order.Side == domain.OrderSideSell && md.Bar.High.GreaterThanOrEqual(order.Price) {
				price = order.Price
			} else {
				remaining = append(remaining, order)
				continue
			}
		}

		slip := e.slippageModel.Calculate(order, md)
		if order.Side == domain.OrderSideBuy {
			price = price.Add(slip)
		} else {
			price = price.Sub(slip)
		}

		commission := price.Mul(order.Quantity).Mul(e.cfg.Commission)
		order.Status = domain.OrderStatusFilled
		order.UpdatedAt = md.Timestamp()

		fills = append(fills, &events.FillEvent{
			Base:       events.Base{At: md.Timestamp(), Prio: priorityFill},
			OrderID:    order.ID,
			Symbol:     order.Symbol,
			Side:       order.Side,
			Quantity:   order.Quantity,
			Price:      price,
			Commission: commission,
			Slippage:   slip,
		})
	}

	e.pendingOrders = remaining
	return fills
}

func (e *Engine) handleFill(ev *events.FillEvent) {
	if ev.Side == domain.OrderSideBuy {
		e.portfolio.Buy(ev.Symbol, ev.Quantity, ev.Price, ev.Commission)
		return
	}

	pnl := e.portfolio.Sell(ev.Symbol, ev.Quantity, ev.Price, ev.Commission)
	e.trades = append(e.trades, &domain.Trade{
		TradeID:    idhash.ComputeTradeID(e.runID, ev.OrderID, ev.Timestamp().UnixMilli()),
		RunID:      e.runID,
		OrderID:    ev.OrderID,
		Symbol:     ev.Symbol,
		Side:       ev.Side,
		Quantity:   ev.Quantity,
		Price:      ev.Price,
		Commission: ev.Commission,
		Slippage:   ev.Slippage,
		PnL:        pnl,
		ExecutedAt: ev.Timestamp(),
	})
}

// handleKillSwitch flattens every open position at the last marked
// price and halts the run.
func (e *Engine) handleKillSwitch(ev *events.KillSwitchEvent) {
	e.logger.WithFields(logrus.Fields{
		"reason":  ev.Reason,
		"trigger": ev.TriggerType,
		"current": ev.Current.String(),
	}).Warn("kill switch triggered, flattening positions")

	for _, symbol := range e.portfolio.OpenSymbols() {
		price, ok := e.portfolio.lastPrice[symbol]
		if !ok {
			continue
		}
		qty := e.portfolio.Position(symbol)
		orderID := e.nextOrderID()
		pnl := e.portfolio.Sell(symbol, qty, price, decimal.Zero)
		e.trades = append(e.trades, &domain.Trade{
			TradeID:    idhash.ComputeTradeID(e.runID, orderID, e.currentTime.UnixMilli()),
			RunID:      e.runID,
			OrderID:    orderID,
			Symbol:     symbol,
			Side:       domain.OrderSideSell,
			Quantity:   qty,
			Price:      price,
			PnL:        pnl,
			ExecutedAt: e.currentTime,
		})
	}

	e.halted = true
	e.queue.Clear()
}
