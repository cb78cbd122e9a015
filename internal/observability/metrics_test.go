package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	RecordDBQuery("postgres", "insert_trades", 0.02, nil)

	if got := testutil.CollectAndCount(DefaultMetrics.DBQueryDuration); got == 0 {
		t.Error("expected a duration series after recording a query")
	}
	if got := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_trades")); got != 0 {
		t.Errorf("successful query must not count as an error, got %v", got)
	}
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("clickhouse", "select_bars"))

	RecordDBQuery("clickhouse", "select_bars", 0.01, errors.New("connection reset"))

	after := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("clickhouse", "select_bars"))
	if after != before+1 {
		t.Errorf("failed query must increment the error counter: before %v, after %v", before, after)
	}
}
