package ingestion

import (
	"time"

	"backtest-lab/internal/events"
)

const (
	defaultMEVWindow    = 10 * time.Second
	maxTrackedPerTarget = 256
)

type pendingTx struct {
	hash     string
	from     string
	gasPrice uint64
	seen     time.Time
}

// Classifier tags pending transactions with MEV heuristics by watching
// recent activity against the same target contract:
//
//   - sandwich: the sender already has a pending transaction against the
//     target with someone else's transaction in between
//   - frontrun: outbids a pending transaction from another sender
//   - backrun: trails a pending transaction from another sender at equal
//     or lower gas
//
// These are capture-time hints, not proofs. Classifier is not safe for
// concurrent use; the capture loop owns it.
type Classifier struct {
	window time.Duration
	recent map[string][]pendingTx
}

// NewClassifier creates a classifier. A non-positive window uses the
// default.
func NewClassifier(window time.Duration) *Classifier {
	if window <= 0 {
		window = defaultMEVWindow
	}
	return &Classifier{
		window: window,
		recent: make(map[string][]pendingTx),
	}
}

// Classify inspects ev against recent same-target transactions, records
// ev for future lookups, and stamps ev.MEVType and ev.IsPotentialMEV.
func (c *Classifier) Classify(ev *events.MempoolEvent) events.MEVType {
	if ev.To == "" {
		return events.MEVTypeNone
	}

	now := ev.Timestamp()
	txs := c.prune(ev.To, now)

	mevType := classifyAgainst(txs, ev)

	txs = append(txs, pendingTx{
		hash:     ev.TxHash,
		from:     ev.From,
		gasPrice: ev.GasPrice,
		seen:     now,
	})
	if len(txs) > maxTrackedPerTarget {
		txs = txs[len(txs)-maxTrackedPerTarget:]
	}
	c.recent[ev.To] = txs

	ev.MEVType = mevType
	ev.IsPotentialMEV = mevType != events.MEVTypeNone
	return mevType
}

// prune drops entries outside the window for one target.
func (c *Classifier) prune(target string, now time.Time) []pendingTx {
	txs := c.recent[target]
	cutoff := now.Add(-c.window)

	kept := txs[:0]
	for _, tx := range txs {
		if tx.seen.After(cutoff) {
			kept = append(kept, tx)
		}
	}
	if len(kept) == 0 {
		delete(c.recent, target)
		return nil
	}
	return kept
}

func classifyAgainst(txs []pendingTx, ev *events.MempoolEvent) events.MEVType {
	if len(txs) == 0 {
		return events.MEVTypeNone
	}

	// Sandwich: earlier tx from this sender with a different sender's
	// tx after it. The new tx would close the sandwich.
	sawOwn := false
	for _, tx := range txs {
		if tx.from == ev.From {
			sawOwn = true
			continue
		}
		if sawOwn {
			return events.MEVTypeSandwich
		}
	}

	for _, tx := range txs {
		if tx.from == ev.From {
			continue
		}
		if ev.GasPrice > tx.gasPrice {
			return events.MEVTypeFrontrun
		}
		return events.MEVTypeBackrun
	}

	return events.MEVTypeNone
}
