package agent

import (
	"context"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// RiskTolerance is an agent's fixed appetite for position risk.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"
)

// TimeHorizon is the horizon an agent reasons over.
type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// Profile is the static metadata describing an agent's persona.
type Profile struct {
	Expertise         []string      `json:"expertise"`
	RiskTolerance     RiskTolerance `json:"risk_tolerance"`
	TimeHorizon       TimeHorizon   `json:"time_horizon"`
	DecisionFramework []string      `json:"decision_framework"`
	KeyQuestions      []string      `json:"key_questions"`
}

// ExpertAgent is the contract every decision-making persona implements. The
// consensus builder treats agents uniformly through this interface and never
// special-cases a concrete agent.
//
// Analyze must be a pure function of the snapshot: no hidden state across
// calls, so a consensus round is reproducible for a fixed set of inputs.
type ExpertAgent interface {
	Name() string
	Profile() Profile
	Analyze(ctx context.Context, snap domain.MarketSnapshot) (domain.AgentDecision, error)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ptr returns a pointer to v, for optional decision fields.
func ptr(v float64) *float64 { return &v }
