package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// WalkForwardStore is an in-memory implementation of storage.WalkForwardStore.
type WalkForwardStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.WindowResult // keyed by run_id
}

// NewWalkForwardStore creates a new in-memory walk-forward store.
func NewWalkForwardStore() *WalkForwardStore {
	return &WalkForwardStore{
		data: make(map[string][]*domain.WindowResult),
	}
}

// InsertWindows adds the window results of one analysis atomically.
// Returns ErrDuplicateKey if windows already exist for the run.
func (s *WalkForwardStore) InsertWindows(_ context.Context, runID string, windows []*domain.WindowResult) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	for _, w := range windows {
		if w == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]*domain.WindowResult, len(windows))
	for i, w := range windows {
		copy := *w
		stored[i] = &copy
	}
	s.data[runID] = stored
	return nil
}

// GetByRunID retrieves window results ordered by in_sample_start ASC.
// Returns ErrNotFound if no analysis was stored for the run.
func (s *WalkForwardStore) GetByRunID(_ context.Context, runID string) ([]*domain.WindowResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.WindowResult, len(stored))
	for i, w := range stored {
		copy := *w
		result[i] = &copy
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].InSampleStart.Before(result[j].InSampleStart)
	})

	return result, nil
}

var _ storage.WalkForwardStore = (*WalkForwardStore)(nil)
