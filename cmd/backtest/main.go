package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	pgstore "backtest-lab/internal/storage/postgres"
)

var hundred = decimal.NewFromInt(100)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	barsPath := flag.String("bars", "", "CSV file of bars (timestamp,symbol,open,high,low,close,volume); overrides stored bars")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of configured DSNs")
	persist := flag.Bool("persist", false, "Persist run summary, trades and equity curve to storage")
	outputJSON := flag.Bool("json", false, "Output result as JSON")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *useMemory {
		cfg.Storage.PostgresDSN = ""
		cfg.Storage.ClickhouseDSN = ""
	}

	logger := logging.New(cfg.Logging)
	log := logging.Component(logger, "backtest")

	btCfg, err := cfg.Backtest.ToDomain()
	if err != nil {
		log.WithError(err).Fatal("invalid backtest configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	stores, err := openStores(ctx, log, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer stores.Close()

	loader, err := buildLoader(*barsPath, stores.Bars)
	if err != nil {
		log.WithError(err).Fatal("build data loader")
	}

	engine := backtest.NewEngine(
		logging.Component(logger, "engine"),
		loader,
		backtest.NewSlippageModel(btCfg.Slippage),
	)

	started := time.Now()
	result, err := engine.Run(ctx, btCfg)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordBacktest(status, time.Since(started).Seconds(), eventsOf(result), tradesOf(result))
	if err != nil {
		log.WithError(err).Fatal("backtest failed")
	}

	if *persist {
		if err := persistResult(ctx, stores, result); err != nil {
			log.WithError(err).Fatal("persist result")
		}
		log.WithField("run_id", result.RunID).Info("result persisted")
	}

	if *outputJSON {
		printJSON(result)
	} else {
		printResult(result)
	}
}

func eventsOf(r *domain.BacktestResult) uint64 {
	if r == nil {
		return 0
	}
	return r.EventsProcessed
}

func tradesOf(r *domain.BacktestResult) int {
	if r == nil {
		return 0
	}
	return len(r.Trades)
}

// stores bundles the persistence handles a CLI run needs, backed by
// memory when no DSN is configured.
type stores struct {
	Bars   storage.BarStore
	Trades storage.TradeStore
	Runs   storage.RunStore
	Equity storage.EquityCurveStore

	pool *pgstore.Pool
	conn *chstore.Conn
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

func openStores(ctx context.Context, log *logrus.Entry, cfg config.StorageConfig) (*stores, error) {
	s := &stores{
		Bars:   memory.NewBarStore(),
		Trades: memory.NewTradeStore(),
		Runs:   memory.NewRunStore(),
		Equity: memory.NewEquityCurveStore(),
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.pool = pool
		s.Trades = pgstore.NewTradeStore(pool)
		s.Runs = pgstore.NewRunStore(pool)
		log.Info("using postgres for runs and trades")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.conn = conn
		s.Bars = chstore.NewBarStore(conn)
		s.Equity = chstore.NewEquityCurveStore(conn)
		log.Info("using clickhouse for bars and equity curves")
	}

	return s, nil
}

func buildLoader(barsPath string, barStore storage.BarStore) (backtest.DataLoader, error) {
	if barsPath != "" {
		return backtest.NewCSVLoader(barsPath)
	}
	return backtest.NewStoreLoader(barStore), nil
}

func persistResult(ctx context.Context, s *stores, result *domain.BacktestResult) error {
	record := &storage.RunRecord{
		RunID:          result.RunID,
		Strategy:       result.Config.Strategy.Name,
		Symbols:        result.Config.Symbols,
		Timeframe:      result.Config.Timeframe,
		StartDate:      result.Config.StartDate,
		EndDate:        result.Config.EndDate,
		InitialCapital: result.Config.InitialCapital.String(),
		TotalReturn:    result.Metrics.TotalReturn.String(),
		MaxDrawdown:    result.Metrics.MaxDrawdown.String(),
		SharpeRatio:    result.Metrics.SharpeRatio.String(),
		TotalTrades:    result.Metrics.TotalTrades,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Runs.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	if len(result.Trades) > 0 {
		if err := s.Trades.InsertBulk(ctx, result.Trades); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	if len(result.EquityCurve) > 0 {
		if err := s.Equity.InsertBulk(ctx, result.RunID, result.EquityCurve); err != nil {
			return fmt.Errorf("insert equity curve: %w", err)
		}
	}
	return nil
}

func printJSON(result *domain.BacktestResult) {
	output, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(output))
}

func printResult(r *domain.BacktestResult) {
	m := r.Metrics

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:            %s\n", r.RunID)
	fmt.Printf("Strategy:          %s\n", r.Config.Strategy.Name)
	fmt.Printf("Symbols:           %v\n", r.Config.Symbols)
	fmt.Printf("Period:            %s to %s\n",
		r.Config.StartDate.Format("2006-01-02"), r.Config.EndDate.Format("2006-01-02"))
	fmt.Printf("Events Processed:  %d\n", r.EventsProcessed)
	fmt.Println()

	fmt.Println("Performance:")
	fmt.Printf("  Starting Capital: %s\n", m.StartingCapital.StringFixed(2))
	fmt.Printf("  Final Equity:     %s\n", m.FinalEquity.StringFixed(2))
	fmt.Printf("  Total Return:     %s%%\n", m.TotalReturn.Mul(hundred).StringFixed(2))
	fmt.Printf("  Max Drawdown:     %s%%\n", m.MaxDrawdown.Mul(hundred).StringFixed(2))
	fmt.Printf("  Sharpe Ratio:     %s\n", m.SharpeRatio.StringFixed(2))
	fmt.Printf("  Profit Factor:    %s\n", m.ProfitFactor.StringFixed(2))
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Total:            %d\n", m.TotalTrades)
	fmt.Printf("  Winners:          %d\n", m.WinningTrades)
	fmt.Printf("  Losers:           %d\n", m.LosingTrades)
	fmt.Printf("  Win Rate:         %s%%\n", m.WinRate.Mul(hundred).StringFixed(2))
	fmt.Printf("  Net Profit:       %s\n", m.NetProfit.StringFixed(2))
}
