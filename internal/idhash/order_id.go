package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeOrderID computes a deterministic order identifier from the
// run and the order's position in the run's submission sequence.
// Formula: SHA256(run_id|seq)
// Returns hex-encoded hash (64 characters).
func ComputeOrderID(runID string, seq uint64) string {
	data := fmt.Sprintf("%s|%d", runID, seq)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
