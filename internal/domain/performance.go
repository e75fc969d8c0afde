package domain

import "time"

// RecentFormWindow is the number of most recent resolutions used for the
// recent-form accuracy figure.
const RecentFormWindow = 10

// TimeframeStats accumulates per-timeframe resolution counts for one agent.
type TimeframeStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// AgentPerformance is the rolling track record of one agent. One record per
// agent, mutated by the ranker after every resolution, never removed.
type AgentPerformance struct {
	AgentName          string                       `json:"agent_name"`
	TotalPredictions   int                          `json:"total_predictions"`
	CorrectPredictions int                          `json:"correct_predictions"`
	Accuracy           float64                      `json:"accuracy"`
	WinRate            float64                      `json:"win_rate"`
	TotalProfitLoss    float64                      `json:"total_profit_loss"`
	AvgConfidence      float64                      `json:"avg_confidence"`
	Ranking            int                          `json:"ranking"` // 1-based
	BestTimeframe      Timeframe                    `json:"best_timeframe,omitempty"`
	RecentForm         float64                      `json:"recent_form"` // accuracy over the last RecentFormWindow resolutions

	// Incrementally maintained inputs; ranking never rescans history.
	ConfidenceSum  float64                      `json:"confidence_sum"`
	RecentOutcomes []Outcome                    `json:"recent_outcomes"` // newest last, capped at RecentFormWindow
	ByTimeframe    map[Timeframe]TimeframeStats `json:"by_timeframe"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Score is the composite ranking score. Ties are broken by higher total P&L.
func (p AgentPerformance) Score() float64 {
	return 0.4*p.Accuracy + 0.3*p.WinRate + 0.3*(p.TotalProfitLoss/10000)
}
