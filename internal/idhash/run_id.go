// Package idhash derives deterministic identifiers so re-running the
// same configuration reproduces the same run and trade IDs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"backtest-lab/internal/domain"
)

// ComputeRunID computes a deterministic run identifier from the fields
// that define a backtest period.
// Formula: SHA256(strategy|symbols|timeframe|start_ms|end_ms)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(cfg *domain.BacktestConfig) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		cfg.Strategy.Name,
		strings.Join(cfg.Symbols, ","),
		cfg.Timeframe,
		cfg.StartDate.UnixMilli(),
		cfg.EndDate.UnixMilli(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
