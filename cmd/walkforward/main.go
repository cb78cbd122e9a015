package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	pgstore "backtest-lab/internal/storage/postgres"
	"backtest-lab/internal/walkforward"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	barsPath := flag.String("bars", "", "CSV file of bars (timestamp,symbol,open,high,low,close,volume); overrides stored bars")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of configured DSNs")
	persist := flag.Bool("persist", false, "Persist window results to storage")
	outputPath := flag.String("output", "", "Write the markdown report to this file (default stdout)")
	csvPath := flag.String("csv", "", "Also write per-window rows as CSV to this file")

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
	log := logging.Component(logger, "walkforward")

	btCfg, err := cfg.Backtest.ToDomain()
	if err != nil {
		log.WithError(err).Fatal("invalid backtest configuration")
	}
	// Invoking this command is opting in, whatever the config says.
	btCfg.Validation.WalkForward.Enabled = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()
	}()

	barStore, windowStore, closeStores, err := openStores(ctx, log, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer closeStores()

	var loader backtest.DataLoader
	if *barsPath != "" {
		loader, err = backtest.NewCSVLoader(*barsPath)
		if err != nil {
			log.WithError(err).Fatal("load bars file")
		}
	} else {
		loader = backtest.NewStoreLoader(barStore)
	}

	// Every leg gets a fresh engine over the shared loader; the engines
	// hold no state across runs so legs cannot contaminate each other.
	engineLogger := logging.Component(logger, "engine")
	analyzer := walkforward.NewAnalyzer(log, func() walkforward.Runner {
		return backtest.NewEngine(engineLogger, loader, backtest.NewSlippageModel(btCfg.Slippage))
	})

	result, err := analyzer.Run(ctx, btCfg)
	if err != nil {
		log.WithError(err).Fatal("walk-forward analysis failed")
	}
	observability.RecordWalkForward(result.WindowsGenerated, result.WindowsEvaluated)

	log.WithFields(logrus.Fields{
		"windows_generated": result.WindowsGenerated,
		"windows_evaluated": result.WindowsEvaluated,
		"robustness":        result.Robustness.StringFixed(4),
	}).Info("analysis complete")

	if *persist {
		analysisID := btCfg.ID
		if analysisID == "" {
			analysisID = uuid.NewString()
		}
		if err := windowStore.InsertWindows(ctx, analysisID, result.Windows); err != nil {
			log.WithError(err).Fatal("persist window results")
		}
		log.WithField("analysis_id", analysisID).Info("window results persisted")
	}

	report := reporting.Build(btCfg, result)

	if err := writeMarkdown(report, *outputPath); err != nil {
		log.WithError(err).Fatal("write report")
	}
	if *csvPath != "" {
		if err := writeCSV(report, *csvPath); err != nil {
			log.WithError(err).Fatal("write csv")
		}
		log.WithField("path", *csvPath).Info("csv written")
	}
}

func openStores(ctx context.Context, log *logrus.Entry, cfg config.StorageConfig) (storage.BarStore, storage.WalkForwardStore, func(), error) {
	var barStore storage.BarStore = memory.NewBarStore()
	var windowStore storage.WalkForwardStore = memory.NewWalkForwardStore()
	closers := []func(){}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		closers = append(closers, pool.Close)
		windowStore = pgstore.NewWalkForwardStore(pool)
		log.Info("using postgres for window results")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		barStore = chstore.NewBarStore(conn)
		log.Info("using clickhouse for bars")
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return barStore, windowStore, closeAll, nil
}

func writeMarkdown(report *reporting.Report, path string) error {
	md := report.Markdown()
	if path == "" {
		fmt.Print(md)
		return nil
	}
	return os.WriteFile(path, []byte(md), 0o644)
}

func writeCSV(report *reporting.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteCSV(f)
}
