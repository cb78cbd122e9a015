// Package walkforward validates a strategy by sliding a window across
// the configured date range and comparing out-of-sample performance
// against in-sample performance per window.
package walkforward

import (
	"time"

	"backtest-lab/internal/domain"
)

// Defaults applied when the config leaves sizes unset or non-positive.
const (
	DefaultWindowDays = 30
	DefaultStepDays   = 7
)

// inSampleSplit returns the in-sample share of a window of the given
// total duration. The split is 80/20.
func inSampleSplit(window time.Duration) time.Duration {
	return window * 4 / 5
}

// GenerateWindows slides a window of windowDays across [start, end) in
// stepDays increments. Each window is split 80/20 into contiguous
// in-sample and out-of-sample segments. A trailing segment shorter
// than a full window is dropped unless partialTail is set, in which
// case one final shrunken window covers the remainder.
func GenerateWindows(start, end time.Time, windowDays, stepDays int, partialTail bool) []domain.WalkForwardWindow {
	if !end.After(start) || windowDays <= 0 || stepDays <= 0 {
		return nil
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	step := time.Duration(stepDays) * 24 * time.Hour

	var windows []domain.WalkForwardWindow
	cursor := start
	for !cursor.Add(window).After(end) {
		windows = append(windows, splitWindow(cursor, cursor.Add(window)))
		cursor = cursor.Add(step)
	}

	if partialTail && cursor.Before(end) && end.Sub(cursor) < window {
		// the remainder still needs room for both legs
		if inSampleSplit(end.Sub(cursor)) > 0 {
			windows = append(windows, splitWindow(cursor, end))
		}
	}

	return windows
}

func splitWindow(start, end time.Time) domain.WalkForwardWindow {
	mid := start.Add(inSampleSplit(end.Sub(start)))
	return domain.WalkForwardWindow{
		InSampleStart:  start,
		InSampleEnd:    mid,
		OutSampleStart: mid,
		OutSampleEnd:   end,
	}
}
