// Package config loads run configuration from a YAML file, with .env
// and environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
)

// Config is the full configuration of a run.
type Config struct {
	Backtest  BacktestConfig  `yaml:"backtest"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   logging.Config  `yaml:"logging"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// BacktestConfig mirrors domain.BacktestConfig with file-friendly
// types. Dates are YYYY-MM-DD, money is decimal strings; ToDomain
// validates and converts.
type BacktestConfig struct {
	ID             string             `yaml:"id"`
	Strategy       string             `yaml:"strategy"`
	Parameters     map[string]float64 `yaml:"parameters"`
	Symbols        []string           `yaml:"symbols"`
	StartDate      string             `yaml:"start_date"`
	EndDate        string             `yaml:"end_date"`
	Timeframe      string             `yaml:"timeframe"`
	InitialCapital string             `yaml:"initial_capital"`
	Commission     string             `yaml:"commission"`
	Slippage       SlippageConfig     `yaml:"slippage"`
	WalkForward    WalkForwardConfig  `yaml:"walk_forward"`
	MonteCarlo     MonteCarloConfig   `yaml:"monte_carlo"`
}

// SlippageConfig selects and parameterizes the slippage model.
type SlippageConfig struct {
	Model          string `yaml:"model"`
	FixedBps       string `yaml:"fixed_bps"`
	ImpactFactor   string `yaml:"impact_factor"`
	VolumeFraction string `yaml:"volume_fraction"`
}

// WalkForwardConfig controls walk-forward validation.
type WalkForwardConfig struct {
	Enabled             bool `yaml:"enabled"`
	WindowDays          int  `yaml:"window_days"`
	StepDays            int  `yaml:"step_days"`
	EvaluatePartialTail bool `yaml:"evaluate_partial_tail"`
}

// MonteCarloConfig controls Monte-Carlo validation.
type MonteCarloConfig struct {
	Enabled    bool `yaml:"enabled"`
	Iterations int  `yaml:"iterations"`
}

// StorageConfig holds database DSNs. Both empty means in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// IngestionConfig configures the chain capture source.
type IngestionConfig struct {
	WSURL string `yaml:"ws_url"`
	Chain string `yaml:"chain"` // "solana" | "evm"
}

// Load reads configuration from a YAML file. A .env file, if present,
// is loaded first; environment variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ToDomain converts the file representation into the engine's config.
func (b *BacktestConfig) ToDomain() (*domain.BacktestConfig, error) {
	start, err := parseDate(b.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := parseDate(b.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}

	capital, err := parseDecimal(b.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("parse initial_capital: %w", err)
	}
	commission, err := parseDecimal(b.Commission)
	if err != nil {
		return nil, fmt.Errorf("parse commission: %w", err)
	}
	fixedBps, err := parseDecimal(b.Slippage.FixedBps)
	if err != nil {
		return nil, fmt.Errorf("parse slippage.fixed_bps: %w", err)
	}
	impact, err := parseDecimal(b.Slippage.ImpactFactor)
	if err != nil {
		return nil, fmt.Errorf("parse slippage.impact_factor: %w", err)
	}
	volFraction, err := parseDecimal(b.Slippage.VolumeFraction)
	if err != nil {
		return nil, fmt.Errorf("parse slippage.volume_fraction: %w", err)
	}

	return &domain.BacktestConfig{
		ID: b.ID,
		Strategy: domain.StrategyConfig{
			Name:       b.Strategy,
			Parameters: b.Parameters,
		},
		Symbols:        append([]string(nil), b.Symbols...),
		StartDate:      start,
		EndDate:        end,
		Timeframe:      domain.Timeframe(b.Timeframe),
		InitialCapital: capital,
		Commission:     commission,
		Slippage: domain.SlippageConfig{
			Model:          b.Slippage.Model,
			FixedBps:       fixedBps,
			ImpactFactor:   impact,
			VolumeFraction: volFraction,
		},
		Validation: domain.ValidationConfig{
			WalkForward: domain.WalkForwardConfig{
				Enabled:             b.WalkForward.Enabled,
				WindowSize:          b.WalkForward.WindowDays,
				StepSize:            b.WalkForward.StepDays,
				EvaluatePartialTail: b.WalkForward.EvaluatePartialTail,
			},
			MonteCarlo: domain.MonteCarloConfig{
				Enabled:    b.MonteCarlo.Enabled,
				Iterations: b.MonteCarlo.Iterations,
			},
		},
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("INGEST_WS_URL"); v != "" {
		cfg.Ingestion.WSURL = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Backtest.Strategy == "" {
		cfg.Backtest.Strategy = "sma_cross"
	}
	if cfg.Backtest.Timeframe == "" {
		cfg.Backtest.Timeframe = string(domain.Timeframe1d)
	}
	if cfg.Backtest.InitialCapital == "" {
		cfg.Backtest.InitialCapital = "10000"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Ingestion.Chain == "" {
		cfg.Ingestion.Chain = "solana"
	}
}
