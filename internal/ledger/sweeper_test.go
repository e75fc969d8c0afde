package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/store/memory"
)

// fakeMarket serves fixed prices per symbol, or a global error.
type fakeMarket struct {
	prices map[string]float64
	err    error
}

func (f *fakeMarket) GetMarketSnapshot(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	if f.err != nil {
		return domain.MarketSnapshot{}, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrMarketDataUnavailable
	}
	return domain.MarketSnapshot{Symbol: symbol, CurrentPrice: price}, nil
}

func newTestSweeper(market *fakeMarket) (*Sweeper, *Ledger, *memory.PredictionStore, *fakeClock) {
	store := memory.NewPredictionStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(store, nil, clock, DefaultPolicy(), testLogger())
	locks := memory.NewLockManager(clock)
	s := NewSweeper(l, store, market, clock, locks, time.Minute, testLogger())
	return s, l, store, clock
}

func TestSweepResolvesDuePredictions(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"DOGE": 0.086, "SHIB": 0.00001}}
	s, l, store, clock := newTestSweeper(market)
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	due, err := l.Create(ctx, dec, "momentum", buySnap(0.08), domain.Timeframe1d, "u")
	require.NoError(t, err)
	notDue, err := l.Create(ctx, dec, "macro",
		domain.MarketSnapshot{Symbol: "SHIB", CurrentPrice: 0.00001}, domain.Timeframe7d, "u")
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	resolved, expired, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Zero(t, expired)

	got, err := store.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionCompleted, got.Status)
	require.NotNil(t, got.ProfitLoss)
	assert.Greater(t, *got.ProfitLoss, 0.0)

	still, err := store.GetByID(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionActive, still.Status)
}

func TestSweepRetriesWhilePriceUnavailable(t *testing.T) {
	market := &fakeMarket{err: domain.ErrMarketDataUnavailable}
	s, l, store, clock := newTestSweeper(market)
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(0.08), domain.Timeframe1d, "u")
	require.NoError(t, err)

	// Due but within the expiry cutoff: stays active for the next tick.
	clock.Advance(25 * time.Hour)
	resolved, expired, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Zero(t, expired)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionActive, got.Status)
}

func TestSweepExpiresPastCutoff(t *testing.T) {
	market := &fakeMarket{err: domain.ErrMarketDataUnavailable}
	s, l, store, clock := newTestSweeper(market)
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(0.08), domain.Timeframe1d, "u")
	require.NoError(t, err)

	// Past twice the timeframe with no price: operational expiry.
	clock.Advance(49 * time.Hour)
	resolved, expired, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, 1, expired)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionExpired, got.Status)
	assert.Nil(t, got.ProfitLoss)
}

func TestSweepRecoversAfterOutage(t *testing.T) {
	market := &fakeMarket{err: domain.ErrMarketDataUnavailable}
	s, l, store, clock := newTestSweeper(market)
	ctx := context.Background()

	dec := domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}
	p, err := l.Create(ctx, dec, "momentum", buySnap(0.08), domain.Timeframe1d, "u")
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, _, err = s.SweepOnce(ctx)
	require.NoError(t, err)

	// Feed comes back before the cutoff; the retry resolves normally.
	market.err = nil
	market.prices = map[string]float64{"DOGE": 0.086}
	resolved, expired, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Zero(t, expired)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionCompleted, got.Status)
}
