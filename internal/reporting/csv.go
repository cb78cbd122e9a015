package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"window",
	"in_sample_start",
	"in_sample_end",
	"out_sample_start",
	"out_sample_end",
	"in_sample_return",
	"out_sample_return",
	"in_sample_max_drawdown",
	"out_sample_max_drawdown",
}

// WriteCSV writes the per-window rows as CSV. Returns and drawdowns
// are raw decimal fractions, not percentages, so downstream tooling
// does its own formatting.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("reporting: write csv header: %w", err)
	}

	for _, row := range r.Rows {
		record := []string{
			strconv.Itoa(row.Index),
			row.InSampleStart.Format(dateLayout),
			row.InSampleEnd.Format(dateLayout),
			row.OutSampleStart.Format(dateLayout),
			row.OutSampleEnd.Format(dateLayout),
			row.InSampleReturn.String(),
			row.OutSampleReturn.String(),
			row.InSampleMaxDD.String(),
			row.OutSampleMaxDD.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("reporting: write csv row %d: %w", row.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
