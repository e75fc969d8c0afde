package domain

import "time"

// MarketSnapshot is a point-in-time view of one market, assembled from the
// market data source and the social sentiment cache. It is created fresh for
// each evaluation cycle and is read-only to agents.
type MarketSnapshot struct {
	Symbol           string    `json:"symbol"`
	CurrentPrice     float64   `json:"current_price"`
	Volume           float64   `json:"volume"`
	MarketCap        float64   `json:"market_cap"`
	Sentiment        float64   `json:"sentiment"` // 0..1, neutral = 0.5
	SocialMentions   int       `json:"social_mentions"`
	InfluencerCount  int       `json:"influencer_count"`
	HistoricalPrices []float64 `json:"historical_prices,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// SentimentRecord is the rolling social sentiment state for one symbol,
// maintained by the social monitor and cached for snapshot assembly.
type SentimentRecord struct {
	Symbol      string    `json:"symbol"`
	Score       float64   `json:"score"` // weighted sentiment, 0..1
	Mentions    int       `json:"mentions"`
	Influencers int       `json:"influencers"`
	MarketCap   float64   `json:"market_cap"`
	UpdatedAt   time.Time `json:"updated_at"`
}
