package ledger

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

// fakeClock is a settable clock shared by the ledger tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger() (*Ledger, *memory.PredictionStore, *fakeClock) {
	store := memory.NewPredictionStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, nil, clock, DefaultPolicy(), testLogger()), store, clock
}

func buySnap(price float64) domain.MarketSnapshot {
	return domain.MarketSnapshot{Symbol: "DOGE", CurrentPrice: price}
}

func TestCreatePrediction(t *testing.T) {
	l, _, clock := newTestLedger()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8, Reasoning: []string{"uptrend"}}
	p, err := l.Create(context.Background(), dec, "momentum", buySnap(100), domain.Timeframe1d, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "momentum", p.AgentName)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, domain.PredictionActive, p.Status)
	assert.Equal(t, 100.0, p.PriceAtCreation)
	assert.InDelta(t, 105, p.TargetPrice, 1e-9)
	assert.Equal(t, clock.now, p.CreatedAt)
	assert.Equal(t, clock.now.Add(24*time.Hour), p.ExpiresAt)
}

func TestCreateRejectsBadInputs(t *testing.T) {
	l, _, _ := newTestLedger()
	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}

	t.Run("zero price", func(t *testing.T) {
		_, err := l.Create(context.Background(), dec, "momentum", buySnap(0), domain.Timeframe1d, "u")
		assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	})

	t.Run("invalid timeframe", func(t *testing.T) {
		_, err := l.Create(context.Background(), dec, "momentum", buySnap(100), domain.Timeframe("2d"), "u")
		assert.Error(t, err)
	})
}

func TestResolveOnce(t *testing.T) {
	l, store, clock := newTestLedger()
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(100), domain.Timeframe1d, "u")
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	resolved, err := l.Resolve(ctx, p.ID, 104)
	require.NoError(t, err)

	assert.Equal(t, domain.PredictionCompleted, resolved.Status)
	assert.Equal(t, domain.OutcomePartial, resolved.Outcome)
	require.NotNil(t, resolved.ProfitLoss)
	assert.InDelta(t, 400, *resolved.ProfitLoss, 1e-9)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, clock.now, *resolved.ResolvedAt)

	// The store reflects the transition.
	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionCompleted, got.Status)
}

func TestResolveTwiceKeepsFirstOutcome(t *testing.T) {
	l, store, _ := newTestLedger()
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(100), domain.Timeframe1d, "u")
	require.NoError(t, err)

	_, err = l.Resolve(ctx, p.ID, 109)
	require.NoError(t, err)

	_, err = l.Resolve(ctx, p.ID, 50)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.True(t, IsAlreadyResolved(err))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCorrect, got.Outcome)
	assert.InDelta(t, 900, *got.ProfitLoss, 1e-9)
}

func TestResolveUnknownID(t *testing.T) {
	l, _, _ := newTestLedger()
	_, err := l.Resolve(context.Background(), "missing", 100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpire(t *testing.T) {
	l, store, _ := newTestLedger()
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(100), domain.Timeframe1d, "u")
	require.NoError(t, err)

	require.NoError(t, l.Expire(ctx, p.ID))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionExpired, got.Status)
	assert.Nil(t, got.ProfitLoss)

	// Expired predictions cannot be resolved afterwards.
	_, err = l.Resolve(ctx, p.ID, 110)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestListActiveScopedToUser(t *testing.T) {
	l, _, _ := newTestLedger()
	ctx := context.Background()
	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}

	_, err := l.Create(ctx, dec, "momentum", buySnap(100), domain.Timeframe1d, "alice")
	require.NoError(t, err)
	_, err = l.Create(ctx, dec, "macro", buySnap(100), domain.Timeframe1d, "bob")
	require.NoError(t, err)

	all, err := l.ListActive(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := l.ListActive(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "momentum", mine[0].AgentName)
}
