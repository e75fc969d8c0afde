package domain

// Action is the direction an agent recommends for a market.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionWatch Action = "WATCH"
)

// Actions lists every valid action in lexicographic order.
var Actions = []Action{ActionBuy, ActionHold, ActionSell, ActionWatch}

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionWatch:
		return true
	}
	return false
}

// AgentDecision is the output of one expert agent for one market snapshot.
// It is immutable once returned by Analyze.
type AgentDecision struct {
	Action       Action   `json:"action"`
	Confidence   float64  `json:"confidence"`    // 0..1
	Reasoning    []string `json:"reasoning"`     // ordered
	Questions    []string `json:"questions"`     // ordered
	RiskNote     string   `json:"risk_note"`
	PositionSize float64  `json:"position_size"` // fraction of allocated capital, 0..1
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TakeProfit   *float64 `json:"take_profit,omitempty"`
	Timeline     string   `json:"timeline"`
}

// TeamConsensus is the single team-level decision reduced from all agents'
// individual votes on one snapshot. It is derived, never persisted directly;
// the ledger turns it into a Prediction.
type TeamConsensus struct {
	FinalDecision     AgentDecision            `json:"final_decision"`
	PerAgentVotes     map[string]AgentDecision `json:"per_agent_votes"`
	ConsensusStrength float64                  `json:"consensus_strength"` // raw agreement ratio, 0..1
	DissentingViews   []string                 `json:"dissenting_views"`
	RiskScore         float64                  `json:"risk_score"` // 0..10
}
