package storage

import "errors"

// Sentinel errors shared by every store implementation. Backtest
// artifacts (runs, trades, bars, equity points, windows) are written
// once per run and never rewritten, so duplicate inserts are rejected
// rather than merged.
var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an
	// existing record. Re-running a config produces the same IDs, so
	// a collision means the result was already persisted.
	ErrDuplicateKey = errors.New("duplicate key: record already persisted")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
