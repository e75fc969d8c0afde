package consensus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/agent"
	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// stubAgent returns a fixed decision (or error) regardless of the snapshot.
type stubAgent struct {
	name     string
	decision domain.AgentDecision
	err      error
}

func (s *stubAgent) Name() string           { return s.name }
func (s *stubAgent) Profile() agent.Profile { return agent.Profile{} }
func (s *stubAgent) Analyze(context.Context, domain.MarketSnapshot) (domain.AgentDecision, error) {
	return s.decision, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBuilder(agents ...agent.ExpertAgent) *Builder {
	reg := agent.NewRegistry()
	for _, a := range agents {
		reg.Register(a)
	}
	return NewBuilder(reg, nil, domain.SystemClock{}, time.Second, testLogger())
}

func snap() domain.MarketSnapshot {
	return domain.MarketSnapshot{Symbol: "DOGE", CurrentPrice: 0.08}
}

func TestBuildWeightedMajority(t *testing.T) {
	b := newTestBuilder(
		&stubAgent{name: "momentum", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.9, PositionSize: 0.2}},
		&stubAgent{name: "macro", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.4, PositionSize: 0.1}},
		&stubAgent{name: "reflexivity", decision: domain.AgentDecision{
			Action: domain.ActionSell, Confidence: 0.8, Reasoning: []string{"sentiment collapsed"},
		}},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)

	// BUY tallies 1.3 against SELL's 0.8.
	assert.Equal(t, domain.ActionBuy, c.FinalDecision.Action)
	assert.InDelta(t, 2.0/3.0, c.ConsensusStrength, 1e-9)
	assert.InDelta(t, (0.9+0.4+0.8)/3, c.FinalDecision.Confidence, 1e-9)
	assert.Len(t, c.PerAgentVotes, 3)

	require.Len(t, c.DissentingViews, 1)
	assert.Contains(t, c.DissentingViews[0], "reflexivity")
	assert.Contains(t, c.DissentingViews[0], "sentiment collapsed")
}

func TestBuildTieBreakByVoteCount(t *testing.T) {
	// Equal weights (0.8 each side); SELL wins on raw vote count.
	b := newTestBuilder(
		&stubAgent{name: "a", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.8}},
		&stubAgent{name: "b", decision: domain.AgentDecision{Action: domain.ActionSell, Confidence: 0.5}},
		&stubAgent{name: "c", decision: domain.AgentDecision{Action: domain.ActionSell, Confidence: 0.3}},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, c.FinalDecision.Action)
}

func TestBuildTieBreakLexicographic(t *testing.T) {
	// Equal weight, equal count: BUY sorts before SELL.
	b := newTestBuilder(
		&stubAgent{name: "a", decision: domain.AgentDecision{Action: domain.ActionSell, Confidence: 0.5}},
		&stubAgent{name: "b", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.5}},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, c.FinalDecision.Action)
}

func TestBuildFailedAgentBecomesDissent(t *testing.T) {
	b := newTestBuilder(
		&stubAgent{name: "momentum", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 0.7}},
		&stubAgent{name: "macro", err: errors.New("boom")},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)

	// The failed agent is excluded from the tally but surfaces as dissent.
	assert.Equal(t, domain.ActionBuy, c.FinalDecision.Action)
	assert.InDelta(t, 1.0, c.ConsensusStrength, 1e-9)
	assert.NotContains(t, c.PerAgentVotes, "macro")
	require.Len(t, c.DissentingViews, 1)
	assert.Contains(t, c.DissentingViews[0], "macro: analysis failed")
}

func TestBuildOutOfContractDecisionIsExcluded(t *testing.T) {
	b := newTestBuilder(
		&stubAgent{name: "good", decision: domain.AgentDecision{Action: domain.ActionHold, Confidence: 0.6}},
		&stubAgent{name: "bad", decision: domain.AgentDecision{Action: domain.ActionBuy, Confidence: 1.5}},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, c.FinalDecision.Action)
	assert.NotContains(t, c.PerAgentVotes, "bad")
}

func TestBuildNoQuorum(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		b := newTestBuilder()
		_, err := b.Build(context.Background(), snap())
		assert.ErrorIs(t, err, domain.ErrNoQuorum)
	})

	t.Run("all agents fail", func(t *testing.T) {
		b := newTestBuilder(
			&stubAgent{name: "a", err: errors.New("down")},
			&stubAgent{name: "b", err: errors.New("down")},
		)
		_, err := b.Build(context.Background(), snap())
		assert.ErrorIs(t, err, domain.ErrNoQuorum)
	})
}

func TestBuildDeterministic(t *testing.T) {
	b := newTestBuilder(
		&stubAgent{name: "momentum", decision: domain.AgentDecision{
			Action: domain.ActionBuy, Confidence: 0.9, PositionSize: 0.2,
			Reasoning: []string{"uptrend"}, Questions: []string{"volume?"},
		}},
		&stubAgent{name: "macro", decision: domain.AgentDecision{
			Action: domain.ActionHold, Confidence: 0.5, PositionSize: 0.05,
			Reasoning: []string{"mid-cycle"},
		}},
	)

	first, err := b.Build(context.Background(), snap())
	require.NoError(t, err)
	second, err := b.Build(context.Background(), snap())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildLeadVoiceAndTargets(t *testing.T) {
	sl, tp := 0.076, 0.09
	sl2, tp2 := 0.072, 0.094
	b := newTestBuilder(
		&stubAgent{name: "lead", decision: domain.AgentDecision{
			Action: domain.ActionBuy, Confidence: 0.9,
			RiskNote: "reversal risk", Timeline: "days",
			StopLoss: &sl, TakeProfit: &tp,
		}},
		&stubAgent{name: "second", decision: domain.AgentDecision{
			Action: domain.ActionBuy, Confidence: 0.6,
			RiskNote: "ignored", Timeline: "ignored",
			StopLoss: &sl2, TakeProfit: &tp2,
		}},
	)

	c, err := b.Build(context.Background(), snap())
	require.NoError(t, err)

	// Risk note and timeline come from the most confident winning voter;
	// stop and target average over the winning voters that set them.
	assert.Equal(t, "reversal risk", c.FinalDecision.RiskNote)
	assert.Equal(t, "days", c.FinalDecision.Timeline)
	require.NotNil(t, c.FinalDecision.StopLoss)
	require.NotNil(t, c.FinalDecision.TakeProfit)
	assert.InDelta(t, (sl+sl2)/2, *c.FinalDecision.StopLoss, 1e-9)
	assert.InDelta(t, (tp+tp2)/2, *c.FinalDecision.TakeProfit, 1e-9)
}
