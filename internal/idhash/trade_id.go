package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id.
// Formula: SHA256(run_id|order_id|executed_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(runID, orderID string, executedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", runID, orderID, executedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
