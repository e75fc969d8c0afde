package agent

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	reflexBullishSentiment = 0.7
	reflexBearishSentiment = 0.35
	reflexMinMentions      = 10
	reflexHotMentions      = 50
)

// Reflexivity is the sentiment agent. It trades the feedback loop between
// social attention and price: strong crowd sentiment with broad mention flow
// begets buying, collapsing sentiment begets selling, and thin mention flow
// means there is no crowd to trade against.
type Reflexivity struct{}

// NewReflexivity creates the reflexivity/sentiment agent.
func NewReflexivity() *Reflexivity { return &Reflexivity{} }

// Name returns the agent identifier.
func (r *Reflexivity) Name() string { return "reflexivity" }

// Profile describes the persona's fixed risk and horizon characteristics.
func (r *Reflexivity) Profile() Profile {
	return Profile{
		Expertise:     []string{"social sentiment", "attention flows", "reflexive feedback loops"},
		RiskTolerance: RiskAggressive,
		TimeHorizon:   HorizonMedium,
		DecisionFramework: []string{
			"measure crowd sentiment and mention breadth",
			"weight influencer participation",
			"fade sentiment extremes only after the flow turns",
		},
		KeyQuestions: []string{
			"Is the crowd's narrative still attracting new participants?",
			"Are influencers leading or chasing the move?",
		},
	}
}

// Analyze is a pure function of the snapshot.
func (r *Reflexivity) Analyze(_ context.Context, snap domain.MarketSnapshot) (domain.AgentDecision, error) {
	if snap.SocialMentions < reflexMinMentions {
		return domain.AgentDecision{
			Action:     domain.ActionWatch,
			Confidence: 0.35,
			Reasoning: []string{
				fmt.Sprintf("only %d mentions, no crowd to measure", snap.SocialMentions),
			},
			Questions:  []string{"What would put this symbol on the crowd's radar?"},
			RiskNote:   "sentiment signals are noise below minimum mention flow",
			Timeline:   "watch for a mention-volume spike",
		}, nil
	}

	influencerBoost := clamp(float64(snap.InfluencerCount)/20, 0, 0.15)

	switch {
	case snap.Sentiment >= reflexBullishSentiment && snap.SocialMentions >= reflexHotMentions:
		conf := clamp(snap.Sentiment+influencerBoost, 0.6, 0.95)
		return domain.AgentDecision{
			Action:     domain.ActionBuy,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("sentiment %.2f with %d mentions and %d influencers, loop is self-reinforcing",
					snap.Sentiment, snap.SocialMentions, snap.InfluencerCount),
				"attention inflow historically precedes price follow-through",
			},
			Questions:    []string{"How crowded is the trade already?"},
			RiskNote:     "reflexive rallies unwind faster than they build",
			PositionSize: clamp(snap.Sentiment*0.3, 0.1, 0.3),
			TakeProfit:   ptr(snap.CurrentPrice * 1.15),
			StopLoss:     ptr(snap.CurrentPrice * 0.92),
			Timeline:     "ride the attention wave, exit on mention decay",
		}, nil
	case snap.Sentiment <= reflexBearishSentiment:
		conf := clamp(1-snap.Sentiment, 0.6, 0.9)
		return domain.AgentDecision{
			Action:     domain.ActionSell,
			Confidence: conf,
			Reasoning: []string{
				fmt.Sprintf("sentiment collapsed to %.2f across %d mentions", snap.Sentiment, snap.SocialMentions),
			},
			Questions:    []string{"Has the negative narrative fully propagated?"},
			RiskNote:     "capitulation bottoms can reverse without warning",
			PositionSize: 0.15,
			TakeProfit:   ptr(snap.CurrentPrice * 0.88),
			Timeline:     "exit before the crowd finishes repricing",
		}, nil
	default:
		return domain.AgentDecision{
			Action:     domain.ActionHold,
			Confidence: 0.5,
			Reasoning: []string{
				fmt.Sprintf("sentiment %.2f is unremarkable, crowd is undecided", snap.Sentiment),
			},
			Questions:    []string{"Which narrative wins the next news cycle?"},
			RiskNote:     "neutral sentiment offers no reflexive edge",
			PositionSize: 0.05,
			Timeline:     "hold until sentiment leaves the neutral band",
		}, nil
	}
}
