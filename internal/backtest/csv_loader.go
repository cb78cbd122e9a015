package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
)

// CSVLoader is a DataLoader reading bars from a CSV file with columns
//
//	timestamp,symbol,open,high,low,close,volume
//
// where timestamp is RFC3339 or YYYY-MM-DD. The whole file is parsed
// at construction; the file is assumed to match the configured
// timeframe, so LoadBars ignores the timeframe argument.
type CSVLoader struct {
	bars map[string][]*domain.OHLCV
}

var _ DataLoader = (*CSVLoader)(nil)

// NewCSVLoader parses the file at path. A header row is detected and
// skipped.
func NewCSVLoader(path string) (*CSVLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open bars file %q: %w", path, err)
	}
	defer f.Close()

	return newCSVLoader(f)
}

func newCSVLoader(r io.Reader) (*CSVLoader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	loader := &CSVLoader{bars: make(map[string][]*domain.OHLCV)}
	line := 0

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest: read bars csv: %w", err)
		}
		line++

		if line == 1 && record[0] == "timestamp" {
			continue
		}
		if len(record) != 7 {
			return nil, fmt.Errorf("backtest: bars csv line %d: %d columns, want 7", line, len(record))
		}

		ts, err := parseBarTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("backtest: bars csv line %d: %w", line, err)
		}

		fields := make([]decimal.Decimal, 5)
		for i, raw := range record[2:] {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("backtest: bars csv line %d col %d: %w", line, i+3, err)
			}
			fields[i] = d
		}

		symbol := record[1]
		loader.bars[symbol] = append(loader.bars[symbol], &domain.OHLCV{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}

	for _, bars := range loader.bars {
		sort.Slice(bars, func(i, j int) bool {
			return bars[i].Timestamp.Before(bars[j].Timestamp)
		})
	}
	return loader, nil
}

func parseBarTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// LoadBars implements DataLoader. Bars are returned for [start, end)
// ordered by timestamp ASC.
func (l *CSVLoader) LoadBars(_ context.Context, symbol string, _ domain.Timeframe, start, end time.Time) ([]*domain.OHLCV, error) {
	var out []*domain.OHLCV
	for _, bar := range l.bars[symbol] {
		if bar.Timestamp.Before(start) {
			continue
		}
		if !bar.Timestamp.Before(end) {
			break
		}
		out = append(out, bar)
	}
	return out, nil
}

// Symbols lists the symbols present in the file, sorted.
func (l *CSVLoader) Symbols() []string {
	out := make([]string, 0, len(l.bars))
	for s := range l.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Bars returns every parsed bar for one symbol, ordered by timestamp.
// The capture CLI uses it to seed a bar store.
func (l *CSVLoader) Bars(symbol string) []*domain.OHLCV {
	return append([]*domain.OHLCV(nil), l.bars[symbol]...)
}
