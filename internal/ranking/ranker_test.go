package ranking

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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRanker() (*Ranker, *memory.PerformanceStore) {
	store := memory.NewPerformanceStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, nil, clock, testLogger()), store
}

func resolvedPrediction(agent string, outcome domain.Outcome, pnl float64) domain.Prediction {
	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	return domain.Prediction{
		ID:         "p-" + agent,
		AgentName:  agent,
		Symbol:     "DOGE",
		Action:     domain.ActionBuy,
		Confidence: 0.8,
		Timeframe:  domain.Timeframe1d,
		Status:     domain.PredictionCompleted,
		Outcome:    outcome,
		ProfitLoss: &pnl,
		ResolvedAt: &at,
	}
}

func TestApplyResolutionUpdatesSummary(t *testing.T) {
	r, store := newTestRanker()
	ctx := context.Background()

	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("momentum", domain.OutcomeCorrect, 900)))
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("momentum", domain.OutcomeIncorrect, -500)))

	perf, err := store.GetByAgent(ctx, "momentum")
	require.NoError(t, err)
	assert.Equal(t, 2, perf.TotalPredictions)
	assert.Equal(t, 1, perf.CorrectPredictions)
	assert.InDelta(t, 0.5, perf.Accuracy, 1e-9)
	assert.InDelta(t, 400, perf.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 0.8, perf.AvgConfidence, 1e-9)
	assert.Equal(t, []domain.Outcome{domain.OutcomeCorrect, domain.OutcomeIncorrect}, perf.RecentOutcomes)
	assert.InDelta(t, 0.5, perf.RecentForm, 1e-9)
	assert.Equal(t, domain.Timeframe1d, perf.BestTimeframe)
	assert.Equal(t, 1, perf.Ranking)
}

func TestApplyResolutionRejectsUnresolved(t *testing.T) {
	r, _ := newTestRanker()

	p := resolvedPrediction("momentum", domain.OutcomeCorrect, 100)
	p.Status = domain.PredictionActive
	assert.Error(t, r.ApplyResolution(context.Background(), p))

	p = resolvedPrediction("momentum", domain.OutcomeCorrect, 100)
	p.ProfitLoss = nil
	assert.Error(t, r.ApplyResolution(context.Background(), p))
}

func TestWatchExcludedFromProfitLoss(t *testing.T) {
	r, store := newTestRanker()
	ctx := context.Background()

	p := resolvedPrediction("reflexivity", domain.OutcomeCorrect, 0)
	p.Action = domain.ActionWatch
	require.NoError(t, r.ApplyResolution(ctx, p))

	perf, err := store.GetByAgent(ctx, "reflexivity")
	require.NoError(t, err)
	assert.Equal(t, 1, perf.TotalPredictions)
	assert.Zero(t, perf.TotalProfitLoss)
	assert.InDelta(t, 1.0, perf.Accuracy, 1e-9)
}

func TestRankingsOrderedByScore(t *testing.T) {
	r, _ := newTestRanker()
	ctx := context.Background()

	// momentum: 1/1 correct, +900. macro: 0/1, -500. reflexivity: 1/2, +400.
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("momentum", domain.OutcomeCorrect, 900)))
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("macro", domain.OutcomeIncorrect, -500)))
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("reflexivity", domain.OutcomeCorrect, 900)))
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("reflexivity", domain.OutcomeIncorrect, -500)))

	board, err := r.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "momentum", board[0].AgentName)
	assert.Equal(t, "reflexivity", board[1].AgentName)
	assert.Equal(t, "macro", board[2].AgentName)
	for i, perf := range board {
		assert.Equal(t, i+1, perf.Ranking)
	}
}

func TestRankingTieBreaks(t *testing.T) {
	r, _ := newTestRanker()
	ctx := context.Background()

	// Identical records: the name decides, deterministically.
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("beta", domain.OutcomeCorrect, 100)))
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("alpha", domain.OutcomeCorrect, 100)))

	board, err := r.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alpha", board[0].AgentName)
	assert.Equal(t, "beta", board[1].AgentName)
}

func TestRecentFormWindow(t *testing.T) {
	r, store := newTestRanker()
	ctx := context.Background()

	// Overfill the window with incorrect outcomes, then finish correct.
	for i := 0; i < domain.RecentFormWindow; i++ {
		require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("momentum", domain.OutcomeIncorrect, -100)))
	}
	require.NoError(t, r.ApplyResolution(ctx, resolvedPrediction("momentum", domain.OutcomeCorrect, 900)))

	perf, err := store.GetByAgent(ctx, "momentum")
	require.NoError(t, err)
	assert.Len(t, perf.RecentOutcomes, domain.RecentFormWindow)
	assert.Equal(t, domain.OutcomeCorrect, perf.RecentOutcomes[len(perf.RecentOutcomes)-1])
	assert.InDelta(t, 1.0/float64(domain.RecentFormWindow), perf.RecentForm, 1e-9)
}

func TestScoreFormula(t *testing.T) {
	perf := domain.AgentPerformance{
		Accuracy:        0.6,
		WinRate:         0.6,
		TotalProfitLoss: 2000,
	}
	assert.InDelta(t, 0.4*0.6+0.3*0.6+0.3*0.2, perf.Score(), 1e-9)
}
