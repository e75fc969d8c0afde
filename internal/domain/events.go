package domain

import "time"

// Pub/sub channels consumed by the WebSocket hub and other subscribers.
const (
	ChannelDecision   = "ch:decision"
	ChannelConsensus  = "ch:consensus"
	ChannelPrediction = "ch:prediction"
	ChannelResolution = "ch:resolution"
	ChannelRanking    = "ch:ranking"
	ChannelPortfolio  = "ch:portfolio"
	ChannelSentiment  = "ch:sentiment"
)

// AgentDecisionMade is emitted once per successful agent vote.
type AgentDecisionMade struct {
	Type      string        `json:"type"` // "agent_decision"
	Agent     string        `json:"agent"`
	Symbol    string        `json:"symbol"`
	Decision  AgentDecision `json:"decision"`
	Timestamp time.Time     `json:"timestamp"`
}

// TeamConsensusReached is emitted after a consensus round completes.
type TeamConsensusReached struct {
	Type      string        `json:"type"` // "team_consensus"
	Symbol    string        `json:"symbol"`
	Consensus TeamConsensus `json:"consensus"`
	Timestamp time.Time     `json:"timestamp"`
}

// PredictionCreated is emitted when the ledger persists a new prediction.
type PredictionCreated struct {
	Type       string     `json:"type"` // "prediction_created"
	Prediction Prediction `json:"prediction"`
}

// PredictionResolved is emitted after the active -> completed transition.
type PredictionResolved struct {
	Type       string     `json:"type"` // "prediction_resolved"
	Prediction Prediction `json:"prediction"`
}

// AgentRankingChanged carries the full leaderboard after a recompute.
type AgentRankingChanged struct {
	Type      string             `json:"type"` // "agent_ranking"
	Rankings  []AgentPerformance `json:"rankings"`
	Timestamp time.Time          `json:"timestamp"`
}

// UserPortfolioChanged is emitted after a user's portfolio value or rank moves.
type UserPortfolioChanged struct {
	Type      string             `json:"type"` // "user_portfolio"
	UserID    string             `json:"user_id"`
	Portfolio UserAgentPortfolio `json:"portfolio"`
}

// SentimentUpdated is emitted by the social monitor when a symbol's rolling
// sentiment window changes.
type SentimentUpdated struct {
	Type      string          `json:"type"` // "sentiment"
	Record    SentimentRecord `json:"record"`
	Timestamp time.Time       `json:"timestamp"`
}
