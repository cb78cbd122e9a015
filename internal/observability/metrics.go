// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backtest metrics
	BacktestsRun    *prometheus.CounterVec
	BacktestRuntime prometheus.Histogram
	EventsProcessed prometheus.Counter
	TradesRecorded  prometheus.Counter

	// Walk-forward metrics
	WindowsGenerated prometheus.Counter
	WindowsEvaluated prometheus.Counter
	WindowsSkipped   prometheus.Counter

	// Capture metrics
	BlocksCaptured     prometheus.Counter
	MempoolTxsCaptured prometheus.Counter
	MEVDetected        *prometheus.CounterVec
	CaptureErrors      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "backtest_lab"
	}

	return &Metrics{
		BacktestsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "backtests_run_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestRuntime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "backtest_runtime_seconds",
			Help:      "Backtest wall time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_processed_total",
			Help:      "Total number of simulation events processed",
		}),
		TradesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_recorded_total",
			Help:      "Total number of trades recorded",
		}),

		WindowsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "windows_generated_total",
			Help:      "Total number of walk-forward windows generated",
		}),
		WindowsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "windows_evaluated_total",
			Help:      "Total number of walk-forward windows fully evaluated",
		}),
		WindowsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walkforward",
			Name:      "windows_skipped_total",
			Help:      "Total number of walk-forward windows skipped after leg failures",
		}),

		BlocksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "blocks_total",
			Help:      "Total number of chain blocks captured",
		}),
		MempoolTxsCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "mempool_txs_total",
			Help:      "Total number of pending transactions captured",
		}),
		MEVDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "mev_detected_total",
			Help:      "Total number of MEV patterns detected by type",
		}, []string{"mev_type"}),
		CaptureErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "errors_total",
			Help:      "Total number of capture errors by type",
		}, []string{"error_type"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBacktest records a completed backtest run.
func RecordBacktest(status string, seconds float64, events uint64, trades int) {
	DefaultMetrics.BacktestsRun.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestRuntime.Observe(seconds)
	DefaultMetrics.EventsProcessed.Add(float64(events))
	DefaultMetrics.TradesRecorded.Add(float64(trades))
}

// RecordWalkForward records window counts of one analysis.
func RecordWalkForward(generated, evaluated int) {
	DefaultMetrics.WindowsGenerated.Add(float64(generated))
	DefaultMetrics.WindowsEvaluated.Add(float64(evaluated))
	if skipped := generated - evaluated; skipped > 0 {
		DefaultMetrics.WindowsSkipped.Add(float64(skipped))
	}
}

// RecordBlockCaptured increments the captured block counter.
func RecordBlockCaptured() {
	DefaultMetrics.BlocksCaptured.Inc()
}

// RecordMempoolTxCaptured increments the captured transaction counter.
func RecordMempoolTxCaptured() {
	DefaultMetrics.MempoolTxsCaptured.Inc()
}

// RecordMEVDetected increments the MEV pattern counter.
func RecordMEVDetected(mevType string) {
	DefaultMetrics.MEVDetected.WithLabelValues(mevType).Inc()
}

// RecordCaptureError records a capture error.
func RecordCaptureError(errorType string) {
	DefaultMetrics.CaptureErrors.WithLabelValues(errorType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
