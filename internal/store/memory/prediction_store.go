// Package memory implements the domain store, cache, bus, and lock contracts
// in process memory. It backs standalone mode and tests; postgres and redis
// serve the same contracts in production.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PredictionStore implements domain.PredictionStore in memory.
type PredictionStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Prediction
	order []string // creation order, oldest first
}

// NewPredictionStore returns an empty PredictionStore.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{byID: make(map[string]domain.Prediction)}
}

// Create inserts a new prediction.
func (s *PredictionStore) Create(_ context.Context, p domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[p.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.byID[p.ID] = p
	s.order = append(s.order, p.ID)
	return nil
}

// GetByID retrieves a prediction.
func (s *PredictionStore) GetByID(_ context.Context, id string) (domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.Prediction{}, domain.ErrNotFound
	}
	return p, nil
}

// ListActive returns active predictions, newest first.
func (s *PredictionStore) ListActive(_ context.Context, opts domain.ListOpts) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(p domain.Prediction) bool { return p.Status == domain.PredictionActive })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListActiveByUser returns one user's active predictions, newest first.
func (s *PredictionStore) ListActiveByUser(_ context.Context, userID string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p domain.Prediction) bool {
		return p.Status == domain.PredictionActive && p.UserID == userID
	}), nil
}

// ListRecent returns up to limit predictions, newest first.
func (s *PredictionStore) ListRecent(_ context.Context, limit int) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(domain.Prediction) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListDue returns active predictions whose timeframe elapsed at or before now.
func (s *PredictionStore) ListDue(_ context.Context, now time.Time) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p domain.Prediction) bool { return p.Due(now) }), nil
}

// MarkCompleted applies the resolution only when the row is still active.
func (s *PredictionStore) MarkCompleted(_ context.Context, id string, res domain.Resolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != domain.PredictionActive {
		return false, nil
	}
	p.Status = domain.PredictionCompleted
	p.Outcome = res.Outcome
	actual, pnl, at := res.ActualPrice, res.ProfitLoss, res.ResolvedAt
	p.ActualPrice = &actual
	p.ProfitLoss = &pnl
	p.ResolvedAt = &at
	s.byID[id] = p
	return true, nil
}

// MarkExpired transitions an active prediction to expired with no outcome.
func (s *PredictionStore) MarkExpired(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != domain.PredictionActive {
		return false, nil
	}
	p.Status = domain.PredictionExpired
	resolvedAt := at
	p.ResolvedAt = &resolvedAt
	s.byID[id] = p
	return true, nil
}

// ListResolvedBefore returns non-active predictions resolved before cutoff.
func (s *PredictionStore) ListResolvedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filter(func(p domain.Prediction) bool {
		return p.Status != domain.PredictionActive && p.ResolvedAt != nil && p.ResolvedAt.Before(cutoff)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of predictions ever created.
func (s *PredictionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

// filter returns matching predictions, newest first. Callers hold the lock.
func (s *PredictionStore) filter(keep func(domain.Prediction) bool) []domain.Prediction {
	var out []domain.Prediction
	for _, id := range s.order {
		if p := s.byID[id]; keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

var _ domain.PredictionStore = (*PredictionStore)(nil)
