package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"backtest-lab/internal/config"
	"backtest-lab/internal/events"
	"backtest-lab/internal/ingestion"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	wsURL := flag.String("ws-url", "", "Websocket endpoint (overrides config)")
	chain := flag.String("chain", "", "Chain: solana or evm (overrides config)")
	journalPath := flag.String("journal", "capture.jsonl", "Journal file for captured events")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *wsURL != "" {
		cfg.Ingestion.WSURL = *wsURL
	}
	if *chain != "" {
		cfg.Ingestion.Chain = *chain
	}

	logger := logging.New(cfg.Logging)
	log := logging.Component(logger, "capture")

	if *metricsAddr != "" {
		go serveMetrics(log, *metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		select {
		case <-sigCh:
			log.Warn("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, log, cfg.Ingestion, *journalPath)
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("capture failed")
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, log *logrus.Entry, cfg config.IngestionConfig, journalPath string) error {
	source, err := ingestion.NewWSSource(log, ingestion.DefaultWSConfig(cfg.WSURL, cfg.Chain))
	if err != nil {
		return err
	}

	journal, err := ingestion.OpenJournal(journalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	log.WithFields(logrus.Fields{
		"url":     cfg.WSURL,
		"chain":   cfg.Chain,
		"journal": journalPath,
	}).Info("starting capture")

	runErr := make(chan error, 1)
	go func() {
		runErr <- source.Run(ctx)
	}()

	var blocks, txs uint64
	for ev := range source.Events() {
		if err := journal.Record(ev); err != nil {
			return err
		}

		switch e := ev.(type) {
		case *events.BlockEvent:
			blocks++
			log.WithFields(logrus.Fields{
				"chain": e.Chain,
				"block": e.BlockNumber,
			}).Debug("block captured")
		case *events.MempoolEvent:
			txs++
			if e.IsPotentialMEV {
				log.WithFields(logrus.Fields{
					"tx_hash":  e.TxHash,
					"target":   e.To,
					"mev_type": e.MEVType,
				}).Info("MEV pattern captured")
			}
		}

		if (blocks+txs)%1000 == 0 {
			log.WithFields(logrus.Fields{
				"blocks": blocks,
				"txs":    txs,
			}).Info("capture progress")
		}
	}

	log.WithFields(logrus.Fields{
		"blocks": blocks,
		"txs":    txs,
	}).Info("capture finished")
	return <-runErr
}

func serveMetrics(log *logrus.Entry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.WithField("addr", addr).Info("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server error")
	}
}
