package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe identifies the bar interval used for a backtest.
type Timeframe string

// Supported timeframes.
const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// BacktestConfig describes a single backtest run.
// The same config, run twice, must produce identical results.
type BacktestConfig struct {
	ID             string           `yaml:"id"`
	Strategy       StrategyConfig   `yaml:"strategy"`
	Symbols        []string         `yaml:"symbols"`
	StartDate      time.Time        `yaml:"start_date"`
	EndDate        time.Time        `yaml:"end_date"`
	Timeframe      Timeframe        `yaml:"timeframe"`
	InitialCapital decimal.Decimal  `yaml:"initial_capital"`
	Commission     decimal.Decimal  `yaml:"commission"` // fraction of notional per fill
	Slippage       SlippageConfig   `yaml:"slippage"`
	Validation     ValidationConfig `yaml:"validation"`
}

// StrategyConfig selects and parameterizes the strategy under test.
type StrategyConfig struct {
	Name       string             `yaml:"name"`
	Parameters map[string]float64 `yaml:"parameters"`
}

// SlippageConfig selects the slippage model applied to fills.
type SlippageConfig struct {
	Model          string          `yaml:"model"` // "fixed" | "volume_impact"
	FixedBps       decimal.Decimal `yaml:"fixed_bps"`
	ImpactFactor   decimal.Decimal `yaml:"impact_factor"`
	VolumeFraction decimal.Decimal `yaml:"volume_fraction"`
}

// ValidationConfig holds the nested validation settings.
// The walk-forward analyzer forces both Enabled flags off on the
// per-leg configs it clones, so a validated run never re-validates.
type ValidationConfig struct {
	WalkForward WalkForwardConfig `yaml:"walk_forward"`
	MonteCarlo  MonteCarloConfig  `yaml:"monte_carlo"`
}

// WalkForwardConfig controls walk-forward analysis.
type WalkForwardConfig struct {
	Enabled    bool `yaml:"enabled"`
	WindowSize int  `yaml:"window_size"` // days, default 30 when <= 0
	StepSize   int  `yaml:"step_size"`   // days, default 7 when <= 0

	// EvaluatePartialTail evaluates a final shrunken window covering the
	// remainder of the range instead of silently dropping it. Off by
	// default: short out-of-sample legs are statistically unreliable.
	EvaluatePartialTail bool `yaml:"evaluate_partial_tail"`
}

// MonteCarloConfig controls Monte-Carlo validation. Only the Enabled
// flag is interpreted by this module; it is forced off on cloned
// per-leg configs alongside the walk-forward flag.
type MonteCarloConfig struct {
	Enabled    bool `yaml:"enabled"`
	Iterations int  `yaml:"iterations"`
}

// Clone returns a deep copy of the config. Symbols and strategy
// parameters are copied so per-leg mutation cannot leak back.
func (c *BacktestConfig) Clone() *BacktestConfig {
	out := *c
	out.Symbols = append([]string(nil), c.Symbols...)
	if c.Strategy.Parameters != nil {
		out.Strategy.Parameters = make(map[string]float64, len(c.Strategy.Parameters))
		for k, v := range c.Strategy.Parameters {
			out.Strategy.Parameters[k] = v
		}
	}
	return &out
}
