package social

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

func newTestMonitor() (*Monitor, *memory.SentimentCache, *memory.SnapshotCache, *fakeClock) {
	sentiments := memory.NewSentimentCache()
	snapshots := memory.NewSnapshotCache()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMonitor(sentiments, snapshots, memory.NewBus(), clock, testLogger())
	return m, sentiments, snapshots, clock
}

func TestExtractTokens(t *testing.T) {
	assert.ElementsMatch(t, []string{"DOGE"}, ExtractTokens("dogecoin to the moon"))
	assert.ElementsMatch(t, []string{"DOGE", "SHIB"}, ExtractTokens("rotating from SHIB into $DOGE"))
	assert.Empty(t, ExtractTokens("bitcoin looks strong today"))
	// Substrings inside larger words must not match.
	assert.Empty(t, ExtractTokens("the dogged shibboleth"))
}

func TestScoreText(t *testing.T) {
	assert.InDelta(t, 0.7, ScoreText("DOGE moon pump incoming"), 1e-9)
	assert.InDelta(t, 0.2, ScoreText("dump it, project is dead, crash imminent"), 1e-9)
	assert.InDelta(t, 0.5, ScoreText("DOGE trading sideways"), 1e-9)
	// Clamped at the extremes.
	assert.Equal(t, 1.0, ScoreText("moon bullish pump rocket gem breakout surge"))
	assert.Equal(t, 0.0, ScoreText("dump crash bearish sell exit dead dump crash"))
}

func TestEngagement(t *testing.T) {
	m := Mention{Likes: 100, Retweets: 30, Replies: 10}
	assert.Equal(t, 170, m.Engagement())
}

func TestProcessMentionDropsSmallAccounts(t *testing.T) {
	mon, sentiments, _, _ := newTestMonitor()

	err := mon.ProcessMention(context.Background(), Mention{
		Author:    "nobody",
		Text:      "DOGE to the moon",
		Followers: 49_999,
	})
	require.NoError(t, err)

	_, err = sentiments.GetSentiment(context.Background(), "DOGE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessMentionUpdatesCache(t *testing.T) {
	mon, sentiments, snapshots, clock := newTestMonitor()
	ctx := context.Background()

	require.NoError(t, snapshots.SetSnapshot(ctx, domain.MarketSnapshot{
		Symbol: "DOGE", MarketCap: 80e6,
	}))

	err := mon.ProcessMention(ctx, Mention{
		Author:    "whale_watcher",
		Text:      "DOGE breakout, this is a gem",
		Followers: 500_000,
		Likes:     200,
		At:        clock.Now(),
	})
	require.NoError(t, err)

	rec, err := sentiments.GetSentiment(ctx, "DOGE")
	require.NoError(t, err)
	assert.Equal(t, "DOGE", rec.Symbol)
	assert.InDelta(t, 0.7, rec.Score, 1e-9)
	assert.Equal(t, 1, rec.Mentions)
	assert.InDelta(t, 80e6, rec.MarketCap, 1e-3)
}

func TestWindowAggregatesWeightedScore(t *testing.T) {
	mon, sentiments, _, clock := newTestMonitor()
	ctx := context.Background()

	// weight 1.0, sentiment 0.7
	require.NoError(t, mon.ProcessMention(ctx, Mention{
		Author: "big", Text: "DOGE moon pump", Followers: 1_000_000, At: clock.Now(),
	}))
	// weight 0.1, sentiment 0.4
	require.NoError(t, mon.ProcessMention(ctx, Mention{
		Author: "small", Text: "thinking about a DOGE exit", Followers: 100_000, At: clock.Now(),
	}))

	rec, err := sentiments.GetSentiment(ctx, "DOGE")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Mentions)
	want := (0.7*1.0 + 0.4*0.1) / 1.1
	assert.InDelta(t, want, rec.Score, 1e-9)
}

func TestWindowPrunesOldMentions(t *testing.T) {
	mon, sentiments, _, clock := newTestMonitor()
	ctx := context.Background()

	require.NoError(t, mon.ProcessMention(ctx, Mention{
		Author: "early", Text: "DOGE moon", Followers: 200_000, At: clock.Now(),
	}))

	// 31 minutes later the first mention has aged out of the window.
	later := clock.Now().Add(31 * time.Minute)
	require.NoError(t, mon.ProcessMention(ctx, Mention{
		Author: "late", Text: "DOGE crash", Followers: 200_000, At: later,
	}))

	rec, err := sentiments.GetSentiment(ctx, "DOGE")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Mentions)
	assert.InDelta(t, 0.4, rec.Score, 1e-9)
	assert.Equal(t, later, rec.UpdatedAt)
}
