package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order or trade.
type OrderSide string

// Order sides.
const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType distinguishes market and limit orders.
type OrderType string

// Order types.
const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

// Order statuses.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a simulated order inside the engine.
type Order struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  decimal.Decimal
	Price     decimal.Decimal // limit price, zero for market orders
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Trade is a closed round-trip recorded by the engine.
type Trade struct {
	TradeID    string // deterministic, see idhash
	RunID      string
	OrderID    string
	Symbol     string
	Side       OrderSide
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	PnL        decimal.Decimal
	ExecutedAt time.Time
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
	Cash      decimal.Decimal
	Drawdown  decimal.Decimal // fraction below peak equity, >= 0
}

// OHLCV is one market data bar.
type OHLCV struct {
	Symbol    string
	Timeframe Timeframe
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Signal is a strategy's request to change exposure.
type Signal struct {
	Symbol    string
	Side      OrderSide
	Price     decimal.Decimal // zero for "at market"
	Strength  decimal.Decimal // [0,1] sizing hint
	Reason    string
	Timestamp time.Time
}
