package walkforward

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
)

// ErrNoWindows is returned when the configured range is shorter than a
// single window. A short range is a configuration mistake, unlike
// individual window failures, which only shrink the evaluated set.
var ErrNoWindows = errors.New("walkforward: date range shorter than one window")

var robustnessCeiling = decimal.NewFromInt(2)

// Runner executes one backtest over one date range. A fresh runner is
// requested per leg, so no state leaks between legs or windows.
type Runner interface {
	Run(ctx context.Context, cfg *domain.BacktestConfig) (*domain.BacktestResult, error)
}

// RunnerFactory builds a fresh Runner. Called twice per window.
type RunnerFactory func() Runner

// Analyzer performs walk-forward validation of a backtest config.
type Analyzer struct {
	logger    *logrus.Entry
	newRunner RunnerFactory
}

// NewAnalyzer creates an analyzer that executes legs via the factory.
func NewAnalyzer(logger *logrus.Entry, newRunner RunnerFactory) *Analyzer {
	return &Analyzer{
		logger:    logger,
		newRunner: newRunner,
	}
}

// Run evaluates the config window by window, sequentially and in
// chronological order. Windows where either leg fails are skipped and
// logged; the remaining windows feed the pooled out-of-sample metrics
// and the robustness score.
func (a *Analyzer) Run(ctx context.Context, cfg *domain.BacktestConfig) (*domain.WalkForwardResult, error) {
	wfCfg := cfg.Validation.WalkForward
	if !wfCfg.Enabled {
		// Disabled validation is a no-op, not a failure.
		return &domain.WalkForwardResult{Robustness: decimal.Zero}, nil
	}

	windowDays := wfCfg.WindowSize
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	stepDays := wfCfg.StepSize
	if stepDays <= 0 {
		stepDays = DefaultStepDays
	}

	windows := GenerateWindows(cfg.StartDate, cfg.EndDate, windowDays, stepDays, wfCfg.EvaluatePartialTail)
	if len(windows) == 0 {
		return nil, ErrNoWindows
	}

	a.logger.WithFields(logrus.Fields{
		"windows":     len(windows),
		"window_days": windowDays,
		"step_days":   stepDays,
	}).Info("starting walk-forward analysis")

	var (
		results      []*domain.WindowResult
		pooledTrades []*domain.Trade
		pooledEquity []domain.EquityPoint
		sumIS, sumOS decimal.Decimal
	)

	for i, window := range windows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		inRes, err := a.runLeg(ctx, cfg, window.InSampleStart, window.InSampleEnd)
		if err != nil {
			a.logger.WithError(err).WithField("window", i).Warn("in-sample leg failed, skipping window")
			continue
		}
		outRes, err := a.runLeg(ctx, cfg, window.OutSampleStart, window.OutSampleEnd)
		if err != nil {
			a.logger.WithError(err).WithField("window", i).Warn("out-of-sample leg failed, skipping window")
			continue
		}

		results = append(results, &domain.WindowResult{
			WalkForwardWindow: window,
			InSampleMetrics:   inRes.Metrics,
			OutSampleMetrics:  outRes.Metrics,
		})
		sumIS = sumIS.Add(inRes.Metrics.TotalReturn)
		sumOS = sumOS.Add(outRes.Metrics.TotalReturn)
		pooledTrades = append(pooledTrades, outRes.Trades...)
		pooledEquity = append(pooledEquity, outRes.EquityCurve...)

		a.logger.WithFields(logrus.Fields{
			"window":     i,
			"is_return":  inRes.Metrics.TotalReturn.String(),
			"oos_return": outRes.Metrics.TotalReturn.String(),
		}).Debug("window evaluated")
	}

	result := &domain.WalkForwardResult{
		Windows:          results,
		OverallMetrics:   metrics.Calculate(pooledTrades, pooledEquity, cfg.InitialCapital),
		Robustness:       robustness(sumOS, sumIS, len(results)),
		WindowsGenerated: len(windows),
		WindowsEvaluated: len(results),
	}

	a.logger.WithFields(logrus.Fields{
		"generated":  result.WindowsGenerated,
		"evaluated":  result.WindowsEvaluated,
		"robustness": result.Robustness.String(),
	}).Info("walk-forward analysis completed")

	return result, nil
}

// runLeg executes one backtest leg on a fresh runner. The cloned
// config has both validation flags forced off, so a leg can never
// trigger nested validation.
func (a *Analyzer) runLeg(ctx context.Context, cfg *domain.BacktestConfig, start, end time.Time) (*domain.BacktestResult, error) {
	leg := cfg.Clone()
	leg.StartDate = start
	leg.EndDate = end
	leg.Validation.WalkForward.Enabled = false
	leg.Validation.MonteCarlo.Enabled = false
	return a.newRunner().Run(ctx, leg)
}

// robustness is sum(out-of-sample) / sum(in-sample) clamped to [0, 2].
// Zero when nothing was evaluated or the in-sample sum is exactly zero.
func robustness(sumOS, sumIS decimal.Decimal, evaluated int) decimal.Decimal {
	if evaluated == 0 || sumIS.IsZero() {
		return decimal.Zero
	}
	ratio := sumOS.Div(sumIS)
	if ratio.IsNegative() {
		return decimal.Zero
	}
	if ratio.GreaterThan(robustnessCeiling) {
		return robustnessCeiling
	}
	return ratio
}
