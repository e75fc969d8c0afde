// Package ranking maintains per-agent track records and the global agent
// leaderboard, recomputed after every resolution.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/keymutex"
)

// Ranker exclusively owns AgentPerformance mutation. Updates for different
// agents proceed concurrently; updates for the same agent are serialized by a
// per-agent mutex, and the global recompute by a single rank mutex.
type Ranker struct {
	store  domain.PerformanceStore
	bus    domain.SignalBus
	clock  domain.Clock
	logger *slog.Logger

	agentMu *keymutex.KeyMutex
	rankMu  sync.Mutex
}

// New creates a Ranker.
func New(store domain.PerformanceStore, bus domain.SignalBus, clock domain.Clock, logger *slog.Logger) *Ranker {
	return &Ranker{
		store:   store,
		bus:     bus,
		clock:   clock,
		logger:  logger.With(slog.String("component", "performance_ranker")),
		agentMu: keymutex.New(),
	}
}

// ApplyResolution folds one resolved prediction into the agent's summary
// fields and recomputes the global ranking. WATCH predictions count toward
// accuracy but never toward profit and loss.
func (r *Ranker) ApplyResolution(ctx context.Context, p domain.Prediction) error {
	if p.Status != domain.PredictionCompleted || p.ProfitLoss == nil {
		return fmt.Errorf("ranking: prediction %s is not resolved", p.ID)
	}

	r.agentMu.Lock(p.AgentName)
	perf, err := r.store.GetByAgent(ctx, p.AgentName)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.agentMu.Unlock(p.AgentName)
			return fmt.Errorf("ranking: load %s: %w", p.AgentName, err)
		}
		perf = domain.AgentPerformance{
			AgentName:   p.AgentName,
			ByTimeframe: make(map[domain.Timeframe]domain.TimeframeStats),
		}
	}
	if perf.ByTimeframe == nil {
		perf.ByTimeframe = make(map[domain.Timeframe]domain.TimeframeStats)
	}

	perf.TotalPredictions++
	if p.Outcome == domain.OutcomeCorrect {
		perf.CorrectPredictions++
	}
	perf.Accuracy = float64(perf.CorrectPredictions) / float64(perf.TotalPredictions)
	perf.WinRate = float64(perf.CorrectPredictions) / float64(perf.TotalPredictions)
	if p.Action != domain.ActionWatch {
		perf.TotalProfitLoss += *p.ProfitLoss
	}
	perf.ConfidenceSum += p.Confidence
	perf.AvgConfidence = perf.ConfidenceSum / float64(perf.TotalPredictions)

	perf.RecentOutcomes = append(perf.RecentOutcomes, p.Outcome)
	if len(perf.RecentOutcomes) > domain.RecentFormWindow {
		perf.RecentOutcomes = perf.RecentOutcomes[len(perf.RecentOutcomes)-domain.RecentFormWindow:]
	}
	perf.RecentForm = recentForm(perf.RecentOutcomes)

	tfStats := perf.ByTimeframe[p.Timeframe]
	tfStats.Total++
	if p.Outcome == domain.OutcomeCorrect {
		tfStats.Correct++
	}
	perf.ByTimeframe[p.Timeframe] = tfStats
	perf.BestTimeframe = bestTimeframe(perf.ByTimeframe)
	perf.UpdatedAt = r.clock.Now()

	if err := r.store.Upsert(ctx, perf); err != nil {
		r.agentMu.Unlock(p.AgentName)
		return fmt.Errorf("ranking: upsert %s: %w", p.AgentName, err)
	}
	r.agentMu.Unlock(p.AgentName)

	if err := r.RecomputeRankings(ctx); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "agent performance updated",
		slog.String("agent", p.AgentName),
		slog.Int("total", perf.TotalPredictions),
		slog.Float64("accuracy", perf.Accuracy),
		slog.Float64("total_pnl", perf.TotalProfitLoss),
		slog.Float64("recent_form", perf.RecentForm),
	)
	return nil
}

// RecomputeRankings sorts all agents by the composite score and writes the
// 1-based rankings. It runs in O(n log n) over the maintained summaries only.
func (r *Ranker) RecomputeRankings(ctx context.Context) error {
	r.rankMu.Lock()
	defer r.rankMu.Unlock()

	all, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("ranking: list all: %w", err)
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		si, sj := all[i].Score(), all[j].Score()
		if si != sj {
			return si > sj
		}
		if all[i].TotalProfitLoss != all[j].TotalProfitLoss {
			return all[i].TotalProfitLoss > all[j].TotalProfitLoss
		}
		return all[i].AgentName < all[j].AgentName
	})

	ranks := make(map[string]int, len(all))
	for i := range all {
		all[i].Ranking = i + 1
		ranks[all[i].AgentName] = i + 1
	}
	if err := r.store.UpdateRankings(ctx, ranks); err != nil {
		return fmt.Errorf("ranking: update rankings: %w", err)
	}

	if r.bus != nil {
		evt, _ := json.Marshal(domain.AgentRankingChanged{
			Type:      "agent_ranking",
			Rankings:  all,
			Timestamp: r.clock.Now(),
		})
		if err := r.bus.Publish(ctx, domain.ChannelRanking, evt); err != nil {
			r.logger.WarnContext(ctx, "publish ranking event failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Leaderboard returns every agent's record sorted by ranking.
func (r *Ranker) Leaderboard(ctx context.Context) ([]domain.AgentPerformance, error) {
	all, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ranking: leaderboard: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Ranking < all[j].Ranking })
	return all, nil
}

// recentForm is the correct fraction over the sliding window.
func recentForm(outcomes []domain.Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	correct := 0
	for _, o := range outcomes {
		if o == domain.OutcomeCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(outcomes))
}

// bestTimeframe picks the timeframe with the highest accuracy; ties break by
// more resolutions, then by name for determinism.
func bestTimeframe(stats map[domain.Timeframe]domain.TimeframeStats) domain.Timeframe {
	var (
		best    domain.Timeframe
		bestAcc = -1.0
		bestN   = 0
	)
	tfs := make([]domain.Timeframe, 0, len(stats))
	for tf := range stats {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })
	for _, tf := range tfs {
		s := stats[tf]
		if s.Total == 0 {
			continue
		}
		acc := float64(s.Correct) / float64(s.Total)
		if acc > bestAcc || (acc == bestAcc && s.Total > bestN) {
			best, bestAcc, bestN = tf, acc, s.Total
		}
	}
	return best
}
