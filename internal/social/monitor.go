// Package social maintains rolling sentiment windows per symbol from
// influencer mentions and feeds the sentiment cache used during snapshot
// assembly.
package social

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	// minFollowers filters out low-reach accounts before scoring.
	minFollowers = 50_000

	// mentionWindow is the rolling window over which weighted sentiment is
	// aggregated.
	mentionWindow = 30 * time.Minute

	// keywordBoost is applied once per matched keyword, positive or negative.
	keywordBoost = 0.1
)

// tokenPatterns maps ticker symbols to the mention patterns detected in
// post text.
var tokenPatterns = map[string]*regexp.Regexp{
	"DOGE":     regexp.MustCompile(`\b(?i:DOGE|DOGECOIN)\b`),
	"SHIB":     regexp.MustCompile(`\b(?i:SHIB|SHIBA)\b`),
	"PEPE":     regexp.MustCompile(`\b(?i:PEPE|PEPECOIN)\b`),
	"FLOKI":    regexp.MustCompile(`\b(?i:FLOKI|FLOKIINU)\b`),
	"BONK":     regexp.MustCompile(`\b(?i:BONK|BONKCOIN)\b`),
	"WIF":      regexp.MustCompile(`\b(?i:WIF|DOGWIFHAT)\b`),
	"POPCAT":   regexp.MustCompile(`\b(?i:POPCAT|POPCATCOIN)\b`),
	"BRETT":    regexp.MustCompile(`\b(?i:BRETT|BASEDPEPE)\b`),
	"WOJAK":    regexp.MustCompile(`\b(?i:WOJAK|WOJAKTOKEN)\b`),
	"MEME":     regexp.MustCompile(`\b(?i:MEME|MEMECOIN)\b`),
	"BABYDOGE": regexp.MustCompile(`\b(?i:BABYDOGE|BABYDOGECOIN)\b`),
	"KISHU":    regexp.MustCompile(`\b(?i:KISHU|KISHUINU)\b`),
	"AKITA":    regexp.MustCompile(`\b(?i:AKITA|AKITAINU)\b`),
	"HOKK":     regexp.MustCompile(`\b(?i:HOKK|HOKKAIDU)\b`),
	"ELON":     regexp.MustCompile(`\b(?i:ELON|ELONTOKEN)\b`),
}

var positiveKeywords = []string{"moon", "bullish", "pump", "rocket", "gem", "breakout", "surge"}
var negativeKeywords = []string{"dump", "crash", "bearish", "sell", "exit", "dead"}

// Mention is one influencer post about zero or more tracked symbols.
type Mention struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Followers int       `json:"followers"`
	Likes     int       `json:"likes"`
	Retweets  int       `json:"retweets"`
	Replies   int       `json:"replies"`
	At        time.Time `json:"at"`
}

// Engagement is the weighted interaction count; reposts count double.
func (m Mention) Engagement() int {
	return m.Likes + 2*m.Retweets + m.Replies
}

type weightedMention struct {
	at        time.Time
	sentiment float64
	weight    float64
}

// Monitor scores mentions, maintains per-symbol 30-minute windows, and
// pushes the aggregated records to the sentiment cache and the signal bus.
// Market cap is read from the last cached snapshot rather than re-fetched
// per mention.
type Monitor struct {
	sentiments domain.SentimentCache
	snapshots  domain.SnapshotCache
	bus        domain.SignalBus
	clock      domain.Clock
	logger     *slog.Logger

	mu      sync.Mutex
	windows map[string][]weightedMention
}

// NewMonitor creates a social sentiment Monitor.
func NewMonitor(
	sentiments domain.SentimentCache,
	snapshots domain.SnapshotCache,
	bus domain.SignalBus,
	clock domain.Clock,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		sentiments: sentiments,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
		logger:     logger.With(slog.String("component", "social_monitor")),
		windows:    make(map[string][]weightedMention),
	}
}

// ExtractTokens returns the tracked symbols mentioned in the text.
func ExtractTokens(text string) []string {
	var tokens []string
	for symbol, pattern := range tokenPatterns {
		if pattern.MatchString(text) {
			tokens = append(tokens, symbol)
		}
	}
	return tokens
}

// ScoreText computes a 0..1 sentiment score for a post. The base is neutral;
// each matched keyword shifts the score by the boost, clamped to range.
func ScoreText(text string) float64 {
	score := 0.5
	lower := strings.ToLower(text)

	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			score += keywordBoost
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			score -= keywordBoost
		}
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// ProcessMention scores one mention and refreshes the rolling window for
// every symbol it references. Mentions from accounts below the follower
// floor are dropped.
func (m *Monitor) ProcessMention(ctx context.Context, mention Mention) error {
	if mention.Followers < minFollowers {
		return nil
	}

	tokens := ExtractTokens(mention.Text)
	if len(tokens) == 0 {
		return nil
	}

	sentiment := ScoreText(mention.Text)
	weight := float64(mention.Followers)/1_000_000 + float64(mention.Engagement())/1_000
	at := mention.At
	if at.IsZero() {
		at = m.clock.Now()
	}

	for _, symbol := range tokens {
		rec := m.updateWindow(symbol, weightedMention{at: at, sentiment: sentiment, weight: weight})

		if m.snapshots != nil {
			if snap, err := m.snapshots.GetSnapshot(ctx, symbol); err == nil {
				rec.MarketCap = snap.MarketCap
			}
		}

		if err := m.sentiments.SetSentiment(ctx, rec); err != nil {
			m.logger.Warn("sentiment cache update failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
			continue
		}

		m.publish(ctx, rec)

		m.logger.Info("processed mention",
			slog.String("author", mention.Author),
			slog.String("symbol", symbol),
			slog.Float64("sentiment", sentiment))
	}
	return nil
}

// updateWindow appends the mention, prunes entries older than the window,
// and returns the re-aggregated record for the symbol.
func (m *Monitor) updateWindow(symbol string, wm weightedMention) domain.SentimentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := wm.at.Add(-mentionWindow)
	kept := m.windows[symbol][:0]
	for _, existing := range m.windows[symbol] {
		if existing.at.After(cutoff) {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, wm)
	m.windows[symbol] = kept

	var weightedSum, totalWeight float64
	for _, entry := range kept {
		weightedSum += entry.sentiment * entry.weight
		totalWeight += entry.weight
	}

	score := 0.5
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}

	return domain.SentimentRecord{
		Symbol:      symbol,
		Score:       score,
		Mentions:    len(kept),
		Influencers: len(kept),
		UpdatedAt:   wm.at,
	}
}

func (m *Monitor) publish(ctx context.Context, rec domain.SentimentRecord) {
	evt := domain.SentimentUpdated{
		Type:      "sentiment",
		Record:    rec,
		Timestamp: m.clock.Now(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := m.bus.Publish(ctx, domain.ChannelSentiment, payload); err != nil {
		m.logger.Warn("sentiment publish failed", slog.String("error", err.Error()))
	}
}
