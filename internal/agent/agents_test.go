package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

func baseSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Symbol:       "DOGE",
		CurrentPrice: 0.08,
		Volume:       5e6,
		MarketCap:    200e6,
	}
}

// risingHistory produces a history whose short moving average sits well above
// the long one.
func risingHistory() []float64 {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.06 + 0.001*float64(i)
	}
	return prices
}

func fallingHistory() []float64 {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 0.10 - 0.001*float64(i)
	}
	return prices
}

func checkContract(t *testing.T, d domain.AgentDecision) {
	t.Helper()
	assert.True(t, d.Action.Valid(), "action %q", d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 0.0)
	assert.LessOrEqual(t, d.Confidence, 1.0)
	assert.NotEmpty(t, d.Reasoning)
}

func TestMomentumBuyOnRisingTrend(t *testing.T) {
	snap := baseSnapshot()
	snap.HistoricalPrices = risingHistory()

	d, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionBuy, d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 0.5)
	require.NotNil(t, d.StopLoss)
	require.NotNil(t, d.TakeProfit)
	assert.Less(t, *d.StopLoss, snap.CurrentPrice)
	assert.Greater(t, *d.TakeProfit, snap.CurrentPrice)
}

func TestMomentumSellOnFallingTrend(t *testing.T) {
	snap := baseSnapshot()
	snap.HistoricalPrices = fallingHistory()

	d, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionSell, d.Action)
	require.NotNil(t, d.StopLoss)
	assert.Greater(t, *d.StopLoss, snap.CurrentPrice)
}

func TestMomentumHoldOnFlatTrend(t *testing.T) {
	snap := baseSnapshot()
	snap.HistoricalPrices = []float64{0.08, 0.08, 0.08, 0.08, 0.08, 0.08}

	d, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestMomentumWatchWithoutHistory(t *testing.T) {
	snap := baseSnapshot()
	snap.HistoricalPrices = []float64{0.08}

	d, err := NewMomentum().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionWatch, d.Action)
}

func TestMomentumDeterministic(t *testing.T) {
	snap := baseSnapshot()
	snap.HistoricalPrices = risingHistory()

	m := NewMomentum()
	first, err := m.Analyze(context.Background(), snap)
	require.NoError(t, err)
	second, err := m.Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMacroBuyOnSmallCapAccumulation(t *testing.T) {
	snap := baseSnapshot()
	snap.MarketCap = 80e6
	snap.Volume = 15e6 // turnover 0.1875

	d, err := NewMacro().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionBuy, d.Action)
}

func TestMacroSellOnDormantMarket(t *testing.T) {
	snap := baseSnapshot()
	snap.Volume = 2e6 // turnover 0.01

	d, err := NewMacro().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionSell, d.Action)
}

func TestMacroHoldMidCycle(t *testing.T) {
	snap := baseSnapshot()
	snap.Volume = 10e6 // turnover 0.05

	d, err := NewMacro().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestMacroLargeCapHighTurnoverHolds(t *testing.T) {
	snap := baseSnapshot()
	snap.MarketCap = 500e6
	snap.Volume = 100e6 // turnover 0.2, but not a small cap

	d, err := NewMacro().Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestMacroWatchWithoutMarketCap(t *testing.T) {
	snap := baseSnapshot()
	snap.MarketCap = 0

	d, err := NewMacro().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionWatch, d.Action)
}

func TestReflexivityBuyOnHotSentiment(t *testing.T) {
	snap := baseSnapshot()
	snap.Sentiment = 0.8
	snap.SocialMentions = 120
	snap.InfluencerCount = 4

	d, err := NewReflexivity().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionBuy, d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 0.6)
}

func TestReflexivitySellOnCollapsedSentiment(t *testing.T) {
	snap := baseSnapshot()
	snap.Sentiment = 0.2
	snap.SocialMentions = 60

	d, err := NewReflexivity().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionSell, d.Action)
}

func TestReflexivityHoldOnNeutralSentiment(t *testing.T) {
	snap := baseSnapshot()
	snap.Sentiment = 0.5
	snap.SocialMentions = 60

	d, err := NewReflexivity().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionHold, d.Action)
}

func TestReflexivityWatchOnThinMentionFlow(t *testing.T) {
	snap := baseSnapshot()
	snap.Sentiment = 0.9
	snap.SocialMentions = 5

	d, err := NewReflexivity().Analyze(context.Background(), snap)
	require.NoError(t, err)
	checkContract(t, d)
	assert.Equal(t, domain.ActionWatch, d.Action)
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(NewReflexivity())
	r.Register(NewMomentum())
	r.Register(NewMacro())

	assert.Equal(t, []string{"reflexivity", "momentum", "macro"}, r.List())
	assert.Equal(t, 3, r.Len())

	// Re-registering keeps the original position.
	r.Register(NewMomentum())
	assert.Equal(t, []string{"reflexivity", "momentum", "macro"}, r.List())

	a, err := r.Get("macro")
	require.NoError(t, err)
	assert.Equal(t, "macro", a.Name())

	_, err = r.Get("oracle")
	assert.Error(t, err)
}
