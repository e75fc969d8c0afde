package agent

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	// macroSmallCap is the market-cap ceiling below which the agent treats a
	// token as early-cycle.
	macroSmallCap = 100e6

	// Turnover (24h volume / market cap) bands delimiting accumulation,
	// distribution and dormancy regimes.
	macroHighTurnover = 0.15
	macroLowTurnover  = 0.02
)

// Macro is the macro-cycle agent. It reads the volume/market-cap turnover
// ratio as a liquidity-cycle indicator: heavy turnover in a small-cap token
// marks accumulation, evaporating turnover marks the end of a cycle.
type Macro struct{}

// NewMacro creates the macro-cycle agent.
func NewMacro() *Macro { return &Macro{} }

// Name returns the agent identifier.
func (m *Macro) Name() string { return "macro" }

// Profile describes the persona's fixed risk and horizon characteristics.
func (m *Macro) Profile() Profile {
	return Profile{
		Expertise:     []string{"liquidity cycles", "market structure", "capital rotation"},
		RiskTolerance: RiskConservative,
		TimeHorizon:   HorizonLong,
		DecisionFramework: []string{
			"locate the token in its liquidity cycle via turnover",
			"weight market-cap tier against cycle stage",
			"avoid positions in dormant markets",
		},
		KeyQuestions: []string{
			"Where is this market in its liquidity cycle?",
			"Is capital rotating in or out of this cap tier?",
		},
	}
}

// Analyze is a pure function of the snapshot.
func (m *Macro) Analyze(_ context.Context, snap domain.MarketSnapshot) (domain.AgentDecision, error) {
	if snap.MarketCap <= 0 {
		return domain.AgentDecision{
			Action:     domain.ActionWatch,
			Confidence: 0.2,
			Reasoning:  []string{fmt.Sprintf("%s: market cap unknown, cycle position cannot be read", snap.Symbol)},
			Questions:  []string{"What is the circulating supply and realistic valuation?"},
			RiskNote:   "unquantifiable downside without valuation data",
			Timeline:   "revisit when market-cap data is available",
		}, nil
	}

	turnover := snap.Volume / snap.MarketCap

	switch {
	case turnover >= macroHighTurnover && snap.MarketCap < macroSmallCap:
		conf := clamp(0.55+turnover, 0.55, 0.9)
		return domain.AgentDecision{
			Action:     domain.ActionBuy,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("turnover %.2f in a %.0fM cap token signals accumulation", turnover, snap.MarketCap/1e6),
				"small caps with heavy turnover front-run capital rotation",
			},
			Questions:    []string{"Is the volume organic or wash trading?"},
			RiskNote:     "small caps retrace violently when rotation stalls",
			PositionSize: clamp(turnover/2, 0.05, 0.15),
			TakeProfit:   ptr(snap.CurrentPrice * 1.2),
			StopLoss:     ptr(snap.CurrentPrice * 0.9),
			Timeline:     "full liquidity cycle, weeks not days",
		}, nil
	case turnover <= macroLowTurnover:
		conf := clamp(0.6+(macroLowTurnover-turnover)*10, 0.6, 0.85)
		return domain.AgentDecision{
			Action:     domain.ActionSell,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("turnover %.3f marks a dormant market, liquidity has left", turnover),
			},
			Questions:    []string{"Is there a catalyst that could restart the cycle?"},
			RiskNote:     "exits in illiquid markets carry heavy slippage",
			PositionSize: 0.1,
			TakeProfit:   ptr(snap.CurrentPrice * 0.85),
			Timeline:     "unwind before liquidity dries up completely",
		}, nil
	default:
		return domain.AgentDecision{
			Action:     domain.ActionHold,
			Confidence: 0.5,
			Reasoning: []string{
				fmt.Sprintf("turnover %.3f is mid-cycle, neither accumulation nor exhaustion", turnover),
			},
			Questions:    []string{"Which way is turnover trending week over week?"},
			RiskNote:     "mid-cycle entries buy at fair value with no edge",
			PositionSize: 0.05,
			Timeline:     "reassess at the next cycle inflection",
		}, nil
	}
}
