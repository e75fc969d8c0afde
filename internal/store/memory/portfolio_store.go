package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore in memory.
type PortfolioStore struct {
	mu     sync.RWMutex
	byUser map[string]domain.UserAgentPortfolio
}

// NewPortfolioStore returns an empty PortfolioStore.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{byUser: make(map[string]domain.UserAgentPortfolio)}
}

// Upsert inserts or replaces a user's portfolio.
func (s *PortfolioStore) Upsert(_ context.Context, p domain.UserAgentPortfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[p.UserID] = clonePortfolio(p)
	return nil
}

// GetByUser retrieves one user's portfolio.
func (s *PortfolioStore) GetByUser(_ context.Context, userID string) (domain.UserAgentPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byUser[userID]
	if !ok {
		return domain.UserAgentPortfolio{}, domain.ErrNotFound
	}
	return clonePortfolio(p), nil
}

// ListAll returns every portfolio ordered by rank ascending.
func (s *PortfolioStore) ListAll(_ context.Context) ([]domain.UserAgentPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAgentPortfolio, 0, len(s.byUser))
	for _, p := range s.byUser {
		out = append(out, clonePortfolio(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// ListBySelectedAgent returns portfolios that follow the given agent.
func (s *PortfolioStore) ListBySelectedAgent(_ context.Context, agent string) ([]domain.UserAgentPortfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserAgentPortfolio
	for _, p := range s.byUser {
		if p.Follows(agent) {
			out = append(out, clonePortfolio(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// UpdateRanks writes the recomputed user ranks in one pass.
func (s *PortfolioStore) UpdateRanks(_ context.Context, ranks map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, rank := range ranks {
		p, ok := s.byUser[userID]
		if !ok {
			continue
		}
		p.Rank = rank
		s.byUser[userID] = p
	}
	return nil
}

// clonePortfolio deep-copies so callers cannot mutate stored state.
func clonePortfolio(p domain.UserAgentPortfolio) domain.UserAgentPortfolio {
	p.SelectedAgents = append([]string(nil), p.SelectedAgents...)
	p.ActivePredictions = append([]string(nil), p.ActivePredictions...)
	p.ValueHistory = append([]domain.ValueSnapshot(nil), p.ValueHistory...)
	if p.Allocations != nil {
		m := make(map[string]float64, len(p.Allocations))
		for k, v := range p.Allocations {
			m[k] = v
		}
		p.Allocations = m
	}
	return p
}

var _ domain.PortfolioStore = (*PortfolioStore)(nil)
