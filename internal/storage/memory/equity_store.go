package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.EquityPoint // run_id -> unix ms -> point
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[string]map[int64]domain.EquityPoint),
	}
}

// InsertBulk adds multiple points atomically. Fails entire batch on any
// duplicate (run_id, timestamp).
func (s *EquityCurveStore) InsertBulk(_ context.Context, runID string, points []domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]
	batchKeys := make(map[int64]struct{}, len(points))

	for _, p := range points {
		key := p.Timestamp.UnixMilli()
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]domain.EquityPoint, len(points))
		s.data[runID] = existing
	}
	for _, p := range points {
		existing[p.Timestamp.UnixMilli()] = p
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(_ context.Context, runID string) ([]domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]domain.EquityPoint, 0, len(stored))
	for _, p := range stored {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)
