package backtest

import (
	"sort"

	"github.com/shopspring/decimal"
)

// position tracks one open holding.
type position struct {
	quantity decimal.Decimal
	avgCost  decimal.Decimal // per unit, commission included
}

// Portfolio tracks cash, open positions and equity for one engine
// instance. It is private simulation state: never shared between
// engines.
type Portfolio struct {
	cash      decimal.Decimal
	positions map[string]*position
	lastPrice map[string]decimal.Decimal
	peak      decimal.Decimal
}

// NewPortfolio creates a portfolio with the given starting cash.
func NewPortfolio(initialCapital decimal.Decimal) *Portfolio {
	return &Portfolio{
		cash:      initialCapital,
		positions: make(map[string]*position),
		lastPrice: make(map[string]decimal.Decimal),
		peak:      initialCapital,
	}
}

// MarkPrice records the latest price for a symbol.
func (p *Portfolio) MarkPrice(symbol string, price decimal.Decimal) {
	p.lastPrice[symbol] = price
	if eq := p.Equity(); eq.GreaterThan(p.peak) {
		p.peak = eq
	}
}

// Buy opens or adds to a position. Commission is deducted from cash.
func (p *Portfolio) Buy(symbol string, qty, price, commission decimal.Decimal) {
	cost := qty.Mul(price).Add(commission)
	p.cash = p.cash.Sub(cost)

	pos, ok := p.positions[symbol]
	if !ok {
		p.positions[symbol] = &position{
			quantity: qty,
			avgCost:  cost.Div(qty),
		}
		return
	}
	total := pos.quantity.Mul(pos.avgCost).Add(cost)
	pos.quantity = pos.quantity.Add(qty)
	pos.avgCost = total.Div(pos.quantity)
}

// Sell reduces or closes a position and returns the realized PnL net
// of commission. Selling more than held closes the position.
func (p *Portfolio) Sell(symbol string, qty, price, commission decimal.Decimal) decimal.Decimal {
	pos, ok := p.positions[symbol]
	if !ok {
		return decimal.Zero
	}
	if qty.GreaterThan(pos.quantity) {
		qty = pos.quantity
	}

	proceeds := qty.Mul(price).Sub(commission)
	p.cash = p.cash.Add(proceeds)
	pnl := proceeds.Sub(qty.Mul(pos.avgCost))

	pos.quantity = pos.quantity.Sub(qty)
	if pos.quantity.IsZero() {
		delete(p.positions, symbol)
	}
	return pnl
}

// Position returns the held quantity for a symbol, zero when flat.
func (p *Portfolio) Position(symbol string) decimal.Decimal {
	if pos, ok := p.positions[symbol]; ok {
		return pos.quantity
	}
	return decimal.Zero
}

// Cash returns available cash.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Equity returns cash plus the marked value of open positions.
func (p *Portfolio) Equity() decimal.Decimal {
	eq := p.cash
	for symbol, pos := range p.positions {
		if price, ok := p.lastPrice[symbol]; ok {
			eq = eq.Add(pos.quantity.Mul(price))
		} else {
			eq = eq.Add(pos.quantity.Mul(pos.avgCost))
		}
	}
	return eq
}

// Drawdown returns the current fraction below peak equity, >= 0.
func (p *Portfolio) Drawdown() decimal.Decimal {
	if !p.peak.IsPositive() {
		return decimal.Zero
	}
	dd := p.peak.Sub(p.Equity()).Div(p.peak)
	if dd.IsNegative() {
		return decimal.Zero
	}
	return dd
}

// OpenSymbols returns symbols with open positions, sorted so that
// flattening walks them in a reproducible order.
func (p *Portfolio) OpenSymbols() []string {
	symbols := make([]string, 0, len(p.positions))
	for s := range p.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
