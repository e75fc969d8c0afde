package agent

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	momentumShortWindow = 5
	momentumLongWindow  = 20

	// momentumThreshold is the short/long moving-average divergence beyond
	// which a directional signal is emitted.
	momentumThreshold = 0.02
)

// Momentum is the quantitative pattern agent. It compares a short and a long
// simple moving average over the snapshot's price history and signals in the
// direction of the divergence. With too little history it abstains with WATCH.
type Momentum struct{}

// NewMomentum creates the quantitative pattern agent.
func NewMomentum() *Momentum { return &Momentum{} }

// Name returns the agent identifier.
func (m *Momentum) Name() string { return "momentum" }

// Profile describes the persona's fixed risk and horizon characteristics.
func (m *Momentum) Profile() Profile {
	return Profile{
		Expertise:     []string{"technical analysis", "trend following", "moving averages"},
		RiskTolerance: RiskModerate,
		TimeHorizon:   HorizonShort,
		DecisionFramework: []string{
			"compare short and long moving averages",
			"confirm with price position relative to trend",
			"size by divergence magnitude",
		},
		KeyQuestions: []string{
			"Is the short-term average diverging from the long-term trend?",
			"Does the latest price confirm the divergence?",
		},
	}
}

// Analyze is a pure function of the snapshot.
func (m *Momentum) Analyze(_ context.Context, snap domain.MarketSnapshot) (domain.AgentDecision, error) {
	prices := snap.HistoricalPrices
	if len(prices) < 2 {
		return domain.AgentDecision{
			Action:     domain.ActionWatch,
			Confidence: 0.3,
			Reasoning:  []string{fmt.Sprintf("%s: insufficient price history for trend analysis", snap.Symbol)},
			Questions:  []string{"How does the price behave over a longer observation window?"},
			RiskNote:   "no directional basis without history",
			Timeline:   "reassess after more observations accumulate",
		}, nil
	}

	short := tailMean(prices, momentumShortWindow)
	long := tailMean(prices, momentumLongWindow)
	if long == 0 {
		return domain.AgentDecision{}, fmt.Errorf("momentum: degenerate price history for %s", snap.Symbol)
	}
	divergence := (short - long) / long

	switch {
	case divergence >= momentumThreshold:
		conf := clamp(0.5+divergence*5, 0.5, 0.95)
		move := clamp(2*divergence, 0.05, 0.30)
		return domain.AgentDecision{
			Action:     domain.ActionBuy,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("short MA %.6f above long MA %.6f (+%.1f%%)", short, long, divergence*100),
				"uptrend confirmed by recent price action",
			},
			Questions:    []string{"Is volume supporting the breakout?"},
			RiskNote:     "trend reversal would invalidate the setup",
			PositionSize: clamp(divergence*4, 0.05, 0.25),
			StopLoss:     ptr(snap.CurrentPrice * 0.95),
			TakeProfit:   ptr(snap.CurrentPrice * (1 + move)),
			Timeline:     "hold while short MA stays above long MA",
		}, nil
	case divergence <= -momentumThreshold:
		conf := clamp(0.5-divergence*5, 0.5, 0.95)
		move := clamp(-2*divergence, 0.05, 0.30)
		return domain.AgentDecision{
			Action:     domain.ActionSell,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("short MA %.6f below long MA %.6f (%.1f%%)", short, long, divergence*100),
				"downtrend confirmed by recent price action",
			},
			Questions:    []string{"Is the selloff driven by liquidity or by fundamentals?"},
			RiskNote:     "short squeezes can force an exit",
			PositionSize: clamp(-divergence*4, 0.05, 0.25),
			StopLoss:     ptr(snap.CurrentPrice * 1.05),
			TakeProfit:   ptr(snap.CurrentPrice * (1 - move)),
			Timeline:     "hold while short MA stays below long MA",
		}, nil
	default:
		return domain.AgentDecision{
			Action:     domain.ActionHold,
			Confidence: clamp(0.6-absFloat(divergence)*5, 0.4, 0.6),
			Reasoning: []string{
				fmt.Sprintf("moving averages within %.1f%% of each other, no clear trend", momentumThreshold*100),
			},
			Questions:    []string{"Which side breaks the consolidation range first?"},
			RiskNote:     "rangebound markets whipsaw directional entries",
			PositionSize: 0.05,
			Timeline:     "wait for a moving-average crossover",
		}, nil
	}
}

// tailMean averages the last n values (or all when fewer are available).
func tailMean(vals []float64, n int) float64 {
	if len(vals) < n {
		n = len(vals)
	}
	var sum float64
	for _, v := range vals[len(vals)-n:] {
		sum += v
	}
	return sum / float64(n)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
