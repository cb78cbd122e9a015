// Package events defines the event model and the ordered queue that a
// simulation drains to advance state. The queue establishes the single
// correctness contract every downstream consumer depends on: events are
// delivered in (timestamp, priority) order and never reordered.
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// EventType tags the concrete payload carried by an event.
type EventType string

// Event type constants.
const (
	EventTypeMarketData EventType = "market_data"
	EventTypeSignal     EventType = "signal"
	EventTypeOrder      EventType = "order"
	EventTypeFill       EventType = "fill"
	EventTypeCancel     EventType = "cancel"
	EventTypePortfolio  EventType = "portfolio"
	EventTypeRisk       EventType = "risk"
	EventTypeBlock      EventType = "block"
	EventTypeMempool    EventType = "mempool"
	EventTypeKillSwitch EventType = "kill_switch"
)

// Event is the envelope shared by all variants. The type tag is
// reported by the concrete variant itself, so it can never disagree
// with the payload type.
type Event interface {
	// Type identifies the concrete payload.
	Type() EventType

	// Timestamp is the simulated time at which the event occurs.
	Timestamp() time.Time

	// Priority breaks ties between events with equal timestamps.
	// Lower values are delivered first.
	Priority() int
}

// Base carries the envelope fields common to every variant.
type Base struct {
	At   time.Time
	Prio int
}

// Timestamp implements Event.
func (b Base) Timestamp() time.Time { return b.At }

// Priority implements Event.
func (b Base) Priority() int { return b.Prio }

// MarketDataEvent delivers one bar or tick for a symbol.
type MarketDataEvent struct {
	Base
	Symbol string
	Bar    *domain.OHLCV
}

// Type implements Event.
func (*MarketDataEvent) Type() EventType { return EventTypeMarketData }

// SignalEvent carries a strategy signal into the order pipeline.
type SignalEvent struct {
	Base
	Signal *domain.Signal
}

// Type implements Event.
func (*SignalEvent) Type() EventType { return EventTypeSignal }

// OrderEvent submits an order to the simulated order manager.
type OrderEvent struct {
	Base
	Order *domain.Order
}

// Type implements Event.
func (*OrderEvent) Type() EventType { return EventTypeOrder }

// FillEvent reports an executed order.
type FillEvent struct {
	Base
	OrderID    string
	Symbol     string
	Side       domain.OrderSide
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
}

// Type implements Event.
func (*FillEvent) Type() EventType { return EventTypeFill }

// CancelEvent reports an order cancellation.
type CancelEvent struct {
	Base
	OrderID string
	Reason  string
}

// Type implements Event.
func (*CancelEvent) Type() EventType { return EventTypeCancel }

// PortfolioEvent snapshots portfolio state for downstream consumers.
type PortfolioEvent struct {
	Base
	Equity decimal.Decimal
	Cash   decimal.Decimal
}

// Type implements Event.
func (*PortfolioEvent) Type() EventType { return EventTypePortfolio }

// RiskEvent reports a breached risk limit.
type RiskEvent struct {
	Base
	RiskType  string
	Threshold decimal.Decimal
	Current   decimal.Decimal
	Message   string
}

// Type implements Event.
func (*RiskEvent) Type() EventType { return EventTypeRisk }

// BlockEvent is an observed chain block.
type BlockEvent struct {
	Base
	Chain       string
	BlockNumber uint64
	BlockHash   string
	ParentHash  string
	TxCount     int
	GasUsed     uint64
	BaseFee     uint64
	Slot        uint64 // Solana chains only
}

// Type implements Event.
func (*BlockEvent) Type() EventType { return EventTypeBlock }

// MEVType classifies a pending-transaction pattern. The classification
// is carried by the event model and interpreted by downstream signal
// generation, not by this package.
type MEVType string

// MEV classifications.
const (
	MEVTypeNone     MEVType = ""
	MEVTypeSandwich MEVType = "sandwich"
	MEVTypeFrontrun MEVType = "frontrun"
	MEVTypeBackrun  MEVType = "backrun"
)

// MempoolEvent is an observed pending transaction.
type MempoolEvent struct {
	Base
	TxHash         string
	From           string
	To             string
	Value          decimal.Decimal
	GasPrice       uint64
	GasLimit       uint64
	Data           []byte
	IsPotentialMEV bool
	MEVType        MEVType
}

// Type implements Event.
func (*MempoolEvent) Type() EventType { return EventTypeMempool }

// KillSwitchEvent tells the engine to flatten and halt.
type KillSwitchEvent struct {
	Base
	Reason      string
	TriggerType string
	Threshold   decimal.Decimal
	Current     decimal.Decimal
}

// Type implements Event.
func (*KillSwitchEvent) Type() EventType { return EventTypeKillSwitch }
