package social

import (
	"context"
	"log/slog"
	"time"
)

// defaultSimInterval is the delay between simulated mention batches.
const defaultSimInterval = 5 * time.Minute

// simulatedMentions stands in for a live influencer stream until a real
// social API integration is configured. The batch covers several tracked
// symbols with varying reach and tone.
var simulatedMentions = []Mention{
	{
		Author:    "elonmusk",
		Text:      "DOGE to the moon! #cryptocurrency",
		Followers: 150_000_000,
		Likes:     50_000,
		Retweets:  25_000,
		Replies:   10_000,
	},
	{
		Author:    "VitalikButerin",
		Text:      "Interesting developments in PEPE ecosystem lately",
		Followers: 5_000_000,
		Likes:     15_000,
		Retweets:  8_000,
		Replies:   3_000,
	},
	{
		Author:    "CryptoCobain",
		Text:      "SHIB showing strong momentum, watching closely",
		Followers: 800_000,
		Likes:     5_000,
		Retweets:  2_000,
		Replies:   1_000,
	},
	{
		Author:    "DeFi_Dad",
		Text:      "FLOKI partnerships are game-changing for the space",
		Followers: 600_000,
		Likes:     3_000,
		Retweets:  1_500,
		Replies:   800,
	},
	{
		Author:    "TheCryptoDog",
		Text:      "BONK on Solana is gaining serious traction",
		Followers: 1_200_000,
		Likes:     8_000,
		Retweets:  4_000,
		Replies:   2_000,
	},
}

// RunSimulated feeds the monitor with the simulated mention batch on a fixed
// interval until the context is cancelled. Interval zero uses the default.
func (m *Monitor) RunSimulated(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultSimInterval
	}

	m.logger.Info("social monitor running in simulation mode",
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Process one batch immediately so snapshots have sentiment from startup.
	m.processBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.processBatch(ctx)
		}
	}
}

func (m *Monitor) processBatch(ctx context.Context) {
	now := m.clock.Now()
	for _, mention := range simulatedMentions {
		mention.At = now
		if err := m.ProcessMention(ctx, mention); err != nil {
			m.logger.Warn("mention processing failed",
				slog.String("author", mention.Author),
				slog.String("error", err.Error()))
		}
	}
}
