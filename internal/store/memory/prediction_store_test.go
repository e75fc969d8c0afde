package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

func activePrediction(id string, created time.Time) domain.Prediction {
	return domain.Prediction{
		ID:        id,
		AgentName: "momentum",
		Symbol:    "DOGE",
		Action:    domain.ActionBuy,
		Timeframe: domain.Timeframe1d,
		Status:    domain.PredictionActive,
		CreatedAt: created,
		ExpiresAt: created.Add(24 * time.Hour),
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := NewPredictionStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, activePrediction("p1", now)))
	assert.ErrorIs(t, s.Create(ctx, activePrediction("p1", now)), domain.ErrAlreadyExists)
}

func TestMarkCompletedIsSingleShot(t *testing.T) {
	s := NewPredictionStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, activePrediction("p1", now)))

	first := domain.Resolution{
		Outcome:     domain.OutcomeCorrect,
		ActualPrice: 0.09,
		ProfitLoss:  900,
		ResolvedAt:  now.Add(24 * time.Hour),
	}
	applied, err := s.MarkCompleted(ctx, "p1", first)
	require.NoError(t, err)
	assert.True(t, applied)

	// A concurrent resolver losing the race gets applied=false and the first
	// outcome stands.
	applied, err = s.MarkCompleted(ctx, "p1", domain.Resolution{
		Outcome:     domain.OutcomeIncorrect,
		ActualPrice: 0.05,
		ProfitLoss:  -500,
		ResolvedAt:  now.Add(25 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCorrect, got.Outcome)
	require.NotNil(t, got.ProfitLoss)
	assert.InDelta(t, 900, *got.ProfitLoss, 1e-9)

	applied, err = s.MarkExpired(ctx, "p1", now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestListDueAndOrdering(t *testing.T) {
	s := NewPredictionStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, activePrediction("old", now.Add(-30*time.Hour))))
	require.NoError(t, s.Create(ctx, activePrediction("fresh", now.Add(-time.Hour))))

	due, err := s.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "old", due[0].ID)

	recent, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "fresh", recent[0].ID)
	assert.Equal(t, "old", recent[1].ID)
}
