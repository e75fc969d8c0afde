package portfolio

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTracker() (*Tracker, *memory.PortfolioStore, *fakeClock) {
	store := memory.NewPortfolioStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, nil, clock, testLogger()), store, clock
}

func resolved(agent string, pnl float64) domain.Prediction {
	return domain.Prediction{
		ID:         "pred-1",
		AgentName:  agent,
		Symbol:     "DOGE",
		Action:     domain.ActionBuy,
		Timeframe:  domain.Timeframe1d,
		Status:     domain.PredictionCompleted,
		Outcome:    domain.OutcomeCorrect,
		ProfitLoss: &pnl,
	}
}

func TestSelectAgents(t *testing.T) {
	tr, _, _ := newTestTracker()

	p, err := tr.SelectAgents(context.Background(), "alice",
		[]string{"momentum", "macro"},
		map[string]float64{"momentum": 60, "macro": 40},
	)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID)
	assert.InDelta(t, domain.PortfolioBaseline, p.TotalValue, 1e-9)
	assert.Equal(t, []string{"momentum", "macro"}, p.SelectedAgents)
	assert.InDelta(t, 60, p.Allocations["momentum"], 1e-9)
	require.Len(t, p.ValueHistory, 1)
	assert.InDelta(t, domain.PortfolioBaseline, p.ValueHistory[0].Value, 1e-9)
}

func TestSelectAgentsReplacePreservesValue(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	_, err := tr.SelectAgents(ctx, "alice", []string{"momentum"}, map[string]float64{"momentum": 100})
	require.NoError(t, err)
	require.NoError(t, tr.ApplyResolution(ctx, resolved("momentum", 500)))

	p, err := tr.SelectAgents(ctx, "alice", []string{"macro"}, map[string]float64{"macro": 50})
	require.NoError(t, err)
	assert.InDelta(t, domain.PortfolioBaseline+500, p.TotalValue, 1e-9)
	assert.Equal(t, []string{"macro"}, p.SelectedAgents)
	assert.NotContains(t, p.Allocations, "momentum")
}

func TestSelectAgentsRejectsBadSelections(t *testing.T) {
	tr, store, _ := newTestTracker()
	ctx := context.Background()

	cases := []struct {
		name   string
		agents []string
		allocs map[string]float64
	}{
		{"no agents", nil, nil},
		{"too many agents", []string{"a", "b", "c", "d", "e", "f"},
			map[string]float64{"a": 10, "b": 10, "c": 10, "d": 10, "e": 10, "f": 10}},
		{"duplicate agent", []string{"momentum", "momentum"}, map[string]float64{"momentum": 50}},
		{"unselected allocation", []string{"momentum"}, map[string]float64{"macro": 50}},
		{"non-positive allocation", []string{"momentum"}, map[string]float64{"momentum": 0}},
		{"sum over limit", []string{"momentum", "macro"}, map[string]float64{"momentum": 70, "macro": 40}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.SelectAgents(ctx, "alice", tc.agents, tc.allocs)
			assert.ErrorIs(t, err, domain.ErrInvalidAllocation)
		})
	}

	_, err := store.GetByUser(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyResolutionCreditsFollowers(t *testing.T) {
	tr, store, _ := newTestTracker()
	ctx := context.Background()

	_, err := tr.SelectAgents(ctx, "alice", []string{"momentum"}, map[string]float64{"momentum": 50})
	require.NoError(t, err)
	_, err = tr.SelectAgents(ctx, "bob", []string{"macro"}, map[string]float64{"macro": 100})
	require.NoError(t, err)

	pred := resolved("momentum", 900)
	pred.UserID = "alice"
	require.NoError(t, tr.ApplyPredictionCreated(ctx, pred))
	require.NoError(t, tr.ApplyResolution(ctx, pred))

	alice, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, domain.PortfolioBaseline+450, alice.TotalValue, 1e-9)
	assert.Empty(t, alice.ActivePredictions)
	assert.Equal(t, 1, alice.Rank)
	assert.InDelta(t, 4.5, alice.Performance.AllTime, 1e-9)

	bob, err := store.GetByUser(ctx, "bob")
	require.NoError(t, err)
	assert.InDelta(t, domain.PortfolioBaseline, bob.TotalValue, 1e-9)
	assert.Equal(t, 2, bob.Rank)
}

func TestApplyResolutionRejectsUnresolved(t *testing.T) {
	tr, _, _ := newTestTracker()

	pred := resolved("momentum", 100)
	pred.Status = domain.PredictionActive
	assert.Error(t, tr.ApplyResolution(context.Background(), pred))
}

func TestApplyResolutionLossCanGoNegative(t *testing.T) {
	tr, store, _ := newTestTracker()
	ctx := context.Background()

	_, err := tr.SelectAgents(ctx, "alice", []string{"momentum"}, map[string]float64{"momentum": 100})
	require.NoError(t, err)
	require.NoError(t, tr.ApplyResolution(ctx, resolved("momentum", -500)))

	alice, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, domain.PortfolioBaseline-500, alice.TotalValue, 1e-9)
	assert.InDelta(t, -5, alice.Performance.AllTime, 1e-9)
}

func TestSnapshotValuesAndWindows(t *testing.T) {
	tr, store, clock := newTestTracker()
	ctx := context.Background()

	_, err := tr.SelectAgents(ctx, "alice", []string{"momentum"}, map[string]float64{"momentum": 100})
	require.NoError(t, err)

	// Day one: gain 1000, snapshot at the new level.
	require.NoError(t, tr.ApplyResolution(ctx, resolved("momentum", 1000)))
	clock.Advance(24 * time.Hour)
	require.NoError(t, tr.SnapshotValues(ctx))

	// Day two: gain another 1000.
	clock.Advance(24 * time.Hour)
	require.NoError(t, tr.ApplyResolution(ctx, resolved("momentum", 1000)))

	alice, err := store.GetByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice.ValueHistory, 2)
	assert.InDelta(t, 12000, alice.TotalValue, 1e-9)
	// Daily window starts at the 11000 snapshot; all-time at the baseline.
	assert.InDelta(t, (12000.0-11000.0)/11000.0*100, alice.Performance.Daily, 1e-9)
	assert.InDelta(t, 20, alice.Performance.AllTime, 1e-9)
}

func TestLeaderboard(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := tr.SelectAgents(ctx, u, []string{"momentum"}, map[string]float64{"momentum": 100})
		require.NoError(t, err)
	}

	pred := resolved("momentum", 100)
	require.NoError(t, tr.ApplyResolution(ctx, pred))

	board, err := tr.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	// Equal values: rank falls back to user id.
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "bob", board[1].UserID)
}
