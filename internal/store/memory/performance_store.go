package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PerformanceStore implements domain.PerformanceStore in memory.
type PerformanceStore struct {
	mu      sync.RWMutex
	byAgent map[string]domain.AgentPerformance
}

// NewPerformanceStore returns an empty PerformanceStore.
func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{byAgent: make(map[string]domain.AgentPerformance)}
}

// Upsert inserts or replaces an agent's record.
func (s *PerformanceStore) Upsert(_ context.Context, perf domain.AgentPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAgent[perf.AgentName] = clonePerf(perf)
	return nil
}

// GetByAgent retrieves one agent's record.
func (s *PerformanceStore) GetByAgent(_ context.Context, agent string) (domain.AgentPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perf, ok := s.byAgent[agent]
	if !ok {
		return domain.AgentPerformance{}, domain.ErrNotFound
	}
	return clonePerf(perf), nil
}

// ListAll returns every record ordered by ranking ascending.
func (s *PerformanceStore) ListAll(_ context.Context) ([]domain.AgentPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AgentPerformance, 0, len(s.byAgent))
	for _, perf := range s.byAgent {
		out = append(out, clonePerf(perf))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ranking != out[j].Ranking {
			return out[i].Ranking < out[j].Ranking
		}
		return out[i].AgentName < out[j].AgentName
	})
	return out, nil
}

// UpdateRankings writes the recomputed rankings in one pass.
func (s *PerformanceStore) UpdateRankings(_ context.Context, rankings map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for agent, rank := range rankings {
		perf, ok := s.byAgent[agent]
		if !ok {
			continue
		}
		perf.Ranking = rank
		s.byAgent[agent] = perf
	}
	return nil
}

// clonePerf deep-copies the record so callers cannot mutate stored state.
func clonePerf(p domain.AgentPerformance) domain.AgentPerformance {
	p.RecentOutcomes = append([]domain.Outcome(nil), p.RecentOutcomes...)
	if p.ByTimeframe != nil {
		m := make(map[domain.Timeframe]domain.TimeframeStats, len(p.ByTimeframe))
		for k, v := range p.ByTimeframe {
			m[k] = v
		}
		p.ByTimeframe = m
	}
	return p
}

var _ domain.PerformanceStore = (*PerformanceStore)(nil)
