package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is an in-memory implementation of driven.HistoryStore.
type HistoryStore struct {
	mu     sync.RWMutex
	passes []domain.PassRecord
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// RecordPass appends a pass summary.
func (s *HistoryStore) RecordPass(_ context.Context, rec domain.PassRecord) error {
	if rec.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes = append(s.passes, rec)
	return nil
}

// ListPasses returns up to limit passes, most recent first.
func (s *HistoryStore) ListPasses(_ context.Context, limit int) ([]domain.PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.passes)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneHistory keeps only the most recent keep passes.
func (s *HistoryStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep >= 0 && len(s.passes) > keep {
		s.passes = slices.Clone(s.passes[len(s.passes)-keep:])
	}
	return nil
}
