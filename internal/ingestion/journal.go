package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"backtest-lab/internal/events"
)

// journalEntry is the on-disk envelope: one JSON object per line, typed
// so a reader can pick the payload struct before decoding.
type journalEntry struct {
	Type    events.EventType `json:"type"`
	At      time.Time        `json:"at"`
	Payload json.RawMessage  `json:"payload"`
}

// Journal persists captured events as an append-only JSON-lines file
// for later replay. Capture sessions survive restarts because the file
// is opened in append mode.
type Journal struct {
	f   *os.File
	enc *json.Encoder
}

// OpenJournal opens (or creates) the journal file at path.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open journal %q: %w", path, err)
	}
	return &Journal{f: f, enc: json.NewEncoder(f)}, nil
}

// Record appends one event. Only chain events are journaled; other
// event types are silently skipped.
func (j *Journal) Record(ev events.Event) error {
	switch ev.Type() {
	case events.EventTypeBlock, events.EventTypeMempool:
	default:
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ingestion: marshal %s event: %w", ev.Type(), err)
	}

	entry := journalEntry{
		Type:    ev.Type(),
		At:      ev.Timestamp(),
		Payload: payload,
	}
	if err := j.enc.Encode(&entry); err != nil {
		return fmt.Errorf("ingestion: append journal entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	return j.f.Close()
}

// ReadJournal decodes every entry in the journal file at path back
// into events, in file order.
func ReadJournal(path string) ([]events.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: open journal %q: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	var out []events.Event

	for dec.More() {
		var entry journalEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("ingestion: decode journal entry: %w", err)
		}

		switch entry.Type {
		case events.EventTypeBlock:
			var ev events.BlockEvent
			if err := json.Unmarshal(entry.Payload, &ev); err != nil {
				return nil, fmt.Errorf("ingestion: decode block event: %w", err)
			}
			out = append(out, &ev)
		case events.EventTypeMempool:
			var ev events.MempoolEvent
			if err := json.Unmarshal(entry.Payload, &ev); err != nil {
				return nil, fmt.Errorf("ingestion: decode mempool event: %w", err)
			}
			out = append(out, &ev)
		default:
			return nil, fmt.Errorf("ingestion: unknown journal entry type %q", entry.Type)
		}
	}
	return out, nil
}
