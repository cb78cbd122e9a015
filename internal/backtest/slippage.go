package backtest

import (
	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/events"
)

var bpsDivisor = decimal.NewFromInt(10000)

// SlippageModel computes the per-unit price penalty applied to a fill.
// The returned amount is added to buy prices and subtracted from sell
// prices.
type SlippageModel interface {
	Calculate(order *domain.Order, md *events.MarketDataEvent) decimal.Decimal
}

// FixedSlippage applies a constant number of basis points of the fill
// price.
type FixedSlippage struct {
	Bps decimal.Decimal
}

// Calculate implements SlippageModel.
func (s *FixedSlippage) Calculate(_ *domain.Order, md *events.MarketDataEvent) decimal.Decimal {
	if md.Bar == nil {
		return decimal.Zero
	}
	return md.Bar.Open.Mul(s.Bps).Div(bpsDivisor)
}

// VolumeImpactSlippage scales the penalty with the order's share of
// the bar's volume: impact = price * factor * (qty / (volume * fraction)).
type VolumeImpactSlippage struct {
	ImpactFactor   decimal.Decimal
	VolumeFraction decimal.Decimal
}

// Calculate implements SlippageModel.
func (s *VolumeImpactSlippage) Calculate(order *domain.Order, md *events.MarketDataEvent) decimal.Decimal {
	if md.Bar == nil || !md.Bar.Volume.IsPositive() {
		return decimal.Zero
	}
	available := md.Bar.Volume.Mul(s.VolumeFraction)
	if !available.IsPositive() {
		return decimal.Zero
	}
	participation := order.Quantity.Div(available)
	return md.Bar.Open.Mul(s.ImpactFactor).Mul(participation)
}

// NewSlippageModel builds a model from config. Unknown model names
// fall back to zero fixed slippage.
func NewSlippageModel(cfg domain.SlippageConfig) SlippageModel {
	switch cfg.Model {
	case "volume_impact":
		return &VolumeImpactSlippage{
			ImpactFactor:   cfg.ImpactFactor,
			VolumeFraction: cfg.VolumeFraction,
		}
	default:
		return &FixedSlippage{Bps: cfg.FixedBps}
	}
}
