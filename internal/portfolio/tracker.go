// Package portfolio maps users to weighted agent selections and tracks the
// paper value each user realizes from their agents' resolved predictions.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/keymutex"
)

// historyRetention bounds how far back value snapshots are kept. The longest
// lookback window is monthly, so anything older has no consumer.
const historyRetention = 35 * 24 * time.Hour

// Tracker exclusively owns UserAgentPortfolio mutation. Same-user updates are
// serialized by a per-user mutex; different users update in parallel.
type Tracker struct {
	store  domain.PortfolioStore
	bus    domain.SignalBus
	clock  domain.Clock
	logger *slog.Logger

	userMu *keymutex.KeyMutex
	rankMu sync.Mutex
}

// New creates a Tracker.
func New(store domain.PortfolioStore, bus domain.SignalBus, clock domain.Clock, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		bus:    bus,
		clock:  clock,
		logger: logger.With(slog.String("component", "portfolio_tracker")),
		userMu: keymutex.New(),
	}
}

// SelectAgents sets or replaces a user's agent selection. It rejects more
// than domain.MaxSelectedAgents agents or allocations summing above
// domain.MaxAllocationPercent with domain.ErrInvalidAllocation, applying no
// mutation. Accepted allocations are stored exactly as given, never clamped.
func (t *Tracker) SelectAgents(ctx context.Context, userID string, agents []string, allocations map[string]float64) (domain.UserAgentPortfolio, error) {
	if err := validateSelection(agents, allocations); err != nil {
		return domain.UserAgentPortfolio{}, err
	}

	t.userMu.Lock(userID)
	defer t.userMu.Unlock(userID)

	now := t.clock.Now()
	p, err := t.store.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.UserAgentPortfolio{}, fmt.Errorf("portfolio: load %s: %w", userID, err)
		}
		p = domain.UserAgentPortfolio{
			UserID:       userID,
			TotalValue:   domain.PortfolioBaseline,
			ValueHistory: []domain.ValueSnapshot{{At: now, Value: domain.PortfolioBaseline}},
			CreatedAt:    now,
		}
	}

	p.SelectedAgents = append([]string(nil), agents...)
	p.Allocations = make(map[string]float64, len(allocations))
	for agent, pct := range allocations {
		p.Allocations[agent] = pct
	}
	p.UpdatedAt = now

	if err := t.store.Upsert(ctx, p); err != nil {
		return domain.UserAgentPortfolio{}, fmt.Errorf("portfolio: upsert %s: %w", userID, err)
	}

	t.logger.InfoContext(ctx, "agent selection updated",
		slog.String("user_id", userID),
		slog.Any("agents", agents),
	)
	return p, nil
}

// validateSelection enforces the selection invariants without mutating state.
func validateSelection(agents []string, allocations map[string]float64) error {
	if len(agents) == 0 || len(agents) > domain.MaxSelectedAgents {
		return fmt.Errorf("portfolio: %d agents selected (1..%d allowed): %w",
			len(agents), domain.MaxSelectedAgents, domain.ErrInvalidAllocation)
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if seen[a] {
			return fmt.Errorf("portfolio: duplicate agent %q: %w", a, domain.ErrInvalidAllocation)
		}
		seen[a] = true
	}
	var sum float64
	for agent, pct := range allocations {
		if !seen[agent] {
			return fmt.Errorf("portfolio: allocation for unselected agent %q: %w", agent, domain.ErrInvalidAllocation)
		}
		if pct <= 0 {
			return fmt.Errorf("portfolio: non-positive allocation for %q: %w", agent, domain.ErrInvalidAllocation)
		}
		sum += pct
	}
	if sum > domain.MaxAllocationPercent {
		return fmt.Errorf("portfolio: allocations sum to %.2f%% (max %.0f): %w",
			sum, domain.MaxAllocationPercent, domain.ErrInvalidAllocation)
	}
	return nil
}

// ApplyPredictionCreated records a newly created prediction on the owning
// user's portfolio, if one exists.
func (t *Tracker) ApplyPredictionCreated(ctx context.Context, pred domain.Prediction) error {
	if pred.UserID == "" || pred.UserID == domain.TeamUserID {
		return nil
	}
	t.userMu.Lock(pred.UserID)
	defer t.userMu.Unlock(pred.UserID)

	p, err := t.store.GetByUser(ctx, pred.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("portfolio: load %s: %w", pred.UserID, err)
	}
	p.ActivePredictions = append(p.ActivePredictions, pred.ID)
	p.UpdatedAt = t.clock.Now()
	if err := t.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("portfolio: upsert %s: %w", pred.UserID, err)
	}
	return nil
}

// ApplyResolution credits every portfolio that follows the resolved
// prediction's agent with its allocation-weighted share of the profit or
// loss, then recomputes the global user ranking.
func (t *Tracker) ApplyResolution(ctx context.Context, pred domain.Prediction) error {
	if pred.Status != domain.PredictionCompleted || pred.ProfitLoss == nil {
		return fmt.Errorf("portfolio: prediction %s is not resolved", pred.ID)
	}

	followers, err := t.store.ListBySelectedAgent(ctx, pred.AgentName)
	if err != nil {
		return fmt.Errorf("portfolio: list followers of %s: %w", pred.AgentName, err)
	}

	changed := make([]domain.UserAgentPortfolio, 0, len(followers))
	for _, p := range followers {
		updated, err := t.creditUser(ctx, p.UserID, pred)
		if err != nil {
			// One user's failure must not block the rest.
			t.logger.ErrorContext(ctx, "portfolio credit failed",
				slog.String("user_id", p.UserID),
				slog.String("prediction_id", pred.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		changed = append(changed, updated)
	}
	if len(changed) == 0 {
		return nil
	}

	if err := t.RecomputeRanks(ctx); err != nil {
		return err
	}

	for _, p := range changed {
		t.publishPortfolio(ctx, p)
	}
	return nil
}

// creditUser applies one resolution to one portfolio under the user's mutex.
func (t *Tracker) creditUser(ctx context.Context, userID string, pred domain.Prediction) (domain.UserAgentPortfolio, error) {
	t.userMu.Lock(userID)
	defer t.userMu.Unlock(userID)

	p, err := t.store.GetByUser(ctx, userID)
	if err != nil {
		return domain.UserAgentPortfolio{}, err
	}
	alloc, ok := p.Allocations[pred.AgentName]
	if !ok {
		// Selection changed between the lookup and the lock.
		return domain.UserAgentPortfolio{}, domain.ErrNotFound
	}

	p.TotalValue += *pred.ProfitLoss * (alloc / 100)
	p.ActivePredictions = removeString(p.ActivePredictions, pred.ID)
	now := t.clock.Now()
	p.Performance = computeWindows(p, now)
	p.UpdatedAt = now

	if err := t.store.Upsert(ctx, p); err != nil {
		return domain.UserAgentPortfolio{}, err
	}
	return p, nil
}

// SnapshotValues records a value snapshot for every portfolio, pruning
// history past the retention horizon. The orchestrator runs it daily so the
// lookback windows always have a boundary observation.
func (t *Tracker) SnapshotValues(ctx context.Context) error {
	all, err := t.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("portfolio: snapshot values: %w", err)
	}
	now := t.clock.Now()
	for _, p := range all {
		t.userMu.Lock(p.UserID)
		cur, err := t.store.GetByUser(ctx, p.UserID)
		if err != nil {
			t.userMu.Unlock(p.UserID)
			t.logger.ErrorContext(ctx, "snapshot load failed",
				slog.String("user_id", p.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
		cur.ValueHistory = append(cur.ValueHistory, domain.ValueSnapshot{At: now, Value: cur.TotalValue})
		cur.ValueHistory = pruneHistory(cur.ValueHistory, now.Add(-historyRetention))
		cur.Performance = computeWindows(cur, now)
		cur.UpdatedAt = now
		if err := t.store.Upsert(ctx, cur); err != nil {
			t.logger.ErrorContext(ctx, "snapshot upsert failed",
				slog.String("user_id", p.UserID),
				slog.String("error", err.Error()),
			)
		}
		t.userMu.Unlock(p.UserID)
	}
	return nil
}

// RecomputeRanks sorts portfolios by total value and writes 1-based ranks.
func (t *Tracker) RecomputeRanks(ctx context.Context) error {
	t.rankMu.Lock()
	defer t.rankMu.Unlock()

	all, err := t.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("portfolio: list all: %w", err)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalValue != all[j].TotalValue {
			return all[i].TotalValue > all[j].TotalValue
		}
		return all[i].UserID < all[j].UserID
	})
	ranks := make(map[string]int, len(all))
	for i := range all {
		ranks[all[i].UserID] = i + 1
	}
	if err := t.store.UpdateRanks(ctx, ranks); err != nil {
		return fmt.Errorf("portfolio: update ranks: %w", err)
	}
	return nil
}

// Get returns one user's portfolio.
func (t *Tracker) Get(ctx context.Context, userID string) (domain.UserAgentPortfolio, error) {
	p, err := t.store.GetByUser(ctx, userID)
	if err != nil {
		return domain.UserAgentPortfolio{}, fmt.Errorf("portfolio: get %s: %w", userID, err)
	}
	return p, nil
}

// Leaderboard returns up to limit portfolios sorted by rank.
func (t *Tracker) Leaderboard(ctx context.Context, limit int) ([]domain.UserAgentPortfolio, error) {
	all, err := t.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio: leaderboard: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Rank < all[j].Rank })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (t *Tracker) publishPortfolio(ctx context.Context, p domain.UserAgentPortfolio) {
	if t.bus == nil {
		return
	}
	evt, _ := json.Marshal(domain.UserPortfolioChanged{
		Type:      "user_portfolio",
		UserID:    p.UserID,
		Portfolio: p,
	})
	if err := t.bus.Publish(ctx, domain.ChannelPortfolio, evt); err != nil {
		t.logger.WarnContext(ctx, "publish portfolio event failed",
			slog.String("user_id", p.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// computeWindows derives the percentage deltas from the retained snapshots.
// Each window compares against the newest snapshot at or before its boundary;
// all-time compares against the fixed baseline.
func computeWindows(p domain.UserAgentPortfolio, now time.Time) domain.PerformanceWindows {
	return domain.PerformanceWindows{
		Daily:   windowDelta(p, now.Add(-24*time.Hour)),
		Weekly:  windowDelta(p, now.Add(-7*24*time.Hour)),
		Monthly: windowDelta(p, now.Add(-30*24*time.Hour)),
		AllTime: pctChange(domain.PortfolioBaseline, p.TotalValue),
	}
}

func windowDelta(p domain.UserAgentPortfolio, boundary time.Time) float64 {
	base := domain.PortfolioBaseline
	for _, s := range p.ValueHistory {
		if s.At.After(boundary) {
			break
		}
		base = s.Value
	}
	return pctChange(base, p.TotalValue)
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func pruneHistory(hist []domain.ValueSnapshot, cutoff time.Time) []domain.ValueSnapshot {
	idx := 0
	for idx < len(hist) && hist[idx].At.Before(cutoff) {
		idx++
	}
	// Keep one observation before the cutoff so the monthly window always has
	// a base.
	if idx > 0 {
		idx--
	}
	return hist[idx:]
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
