package domain

import "time"

const (
	// PortfolioBaseline is the starting paper value of every user portfolio.
	PortfolioBaseline = 10000.0

	// MaxSelectedAgents caps how many agents a user may follow.
	MaxSelectedAgents = 5

	// MaxAllocationPercent caps the sum of a user's per-agent allocations.
	MaxAllocationPercent = 100.0
)

// PerformanceWindows holds percentage value deltas over the standard lookback
// windows, computed from retained value snapshots.
type PerformanceWindows struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
	AllTime float64 `json:"all_time"`
}

// ValueSnapshot records the portfolio value at a window boundary.
type ValueSnapshot struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// UserAgentPortfolio maps one user to a weighted subset of agents and tracks
// the paper value realized from those agents' resolved predictions.
type UserAgentPortfolio struct {
	UserID            string             `json:"user_id"`
	SelectedAgents    []string           `json:"selected_agents"`            // <= MaxSelectedAgents
	Allocations       map[string]float64 `json:"allocation_percentages"`     // agent -> percent, sums <= 100
	TotalValue        float64            `json:"total_value"`
	Performance       PerformanceWindows `json:"performance"`
	ActivePredictions []string           `json:"active_predictions"`         // prediction ids
	Rank              int                `json:"rank"`                       // 1-based, by TotalValue desc

	ValueHistory []ValueSnapshot `json:"value_history"` // window-boundary snapshots, oldest first
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Follows reports whether the user has selected the given agent.
func (u UserAgentPortfolio) Follows(agent string) bool {
	_, ok := u.Allocations[agent]
	return ok
}
