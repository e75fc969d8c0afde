// Package consensus reduces the individual votes of every registered expert
// agent into a single team decision with dissent and risk metadata.
package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/alanyoungcy/tradecouncil/internal/agent"
	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	// defaultAgentTimeout bounds a single agent's Analyze call so one slow
	// agent can never stall the round.
	defaultAgentTimeout = 3 * time.Second

	maxReasoning = 5
	maxQuestions = 7
)

// Builder runs a consensus round: it fans out one snapshot to every agent,
// waits for all to finish or time out, and reduces the votes deterministically.
type Builder struct {
	registry *agent.Registry
	bus      domain.SignalBus
	clock    domain.Clock
	timeout  time.Duration
	logger   *slog.Logger
}

// NewBuilder creates a Builder. A non-positive timeout falls back to the
// default per-agent timeout.
func NewBuilder(registry *agent.Registry, bus domain.SignalBus, clock domain.Clock, timeout time.Duration, logger *slog.Logger) *Builder {
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	return &Builder{
		registry: registry,
		bus:      bus,
		clock:    clock,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "consensus_builder")),
	}
}

// vote pairs an agent with its decision (or failure) for one round.
type vote struct {
	agent    string
	decision domain.AgentDecision
	err      error
}

// Build invokes every registered agent on the snapshot and reduces the votes.
// Agents whose Analyze fails or times out are excluded from the tally and
// recorded as dissent; Build returns domain.ErrNoQuorum only when every agent
// fails. Given identical agent outputs the result is fully deterministic.
func (b *Builder) Build(ctx context.Context, snap domain.MarketSnapshot) (domain.TeamConsensus, error) {
	agents := b.registry.All()
	if len(agents) == 0 {
		return domain.TeamConsensus{}, fmt.Errorf("consensus: %w", domain.ErrNoQuorum)
	}

	votes := make([]vote, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range agents {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, b.timeout)
			defer cancel()
			dec, err := a.Analyze(actx, snap)
			if err == nil && (!dec.Action.Valid() || dec.Confidence < 0 || dec.Confidence > 1) {
				err = fmt.Errorf("agent %s returned out-of-contract decision", a.Name())
			}
			votes[i] = vote{agent: a.Name(), decision: dec, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return b.reduce(ctx, snap, votes)
}

// reduce turns the collected votes into a TeamConsensus.
func (b *Builder) reduce(ctx context.Context, snap domain.MarketSnapshot, votes []vote) (domain.TeamConsensus, error) {
	var (
		succeeded []vote
		dissent   []string
	)
	for _, v := range votes {
		if v.err != nil {
			b.logger.WarnContext(ctx, "agent analysis failed",
				slog.String("agent", v.agent),
				slog.String("symbol", snap.Symbol),
				slog.String("error", v.err.Error()),
			)
			dissent = append(dissent, fmt.Sprintf("%s: analysis failed", v.agent))
			continue
		}
		succeeded = append(succeeded, v)
	}
	if len(succeeded) == 0 {
		return domain.TeamConsensus{}, fmt.Errorf("consensus for %s: %w", snap.Symbol, domain.ErrNoQuorum)
	}

	winner := winningAction(succeeded)

	perAgent := make(map[string]domain.AgentDecision, len(succeeded))
	var (
		confs      []float64
		sizes      []float64
		agreeCount int
	)
	for _, v := range succeeded {
		perAgent[v.agent] = v.decision
		confs = append(confs, v.decision.Confidence)
		sizes = append(sizes, v.decision.PositionSize)
		if v.decision.Action == winner {
			agreeCount++
		} else if len(v.decision.Reasoning) > 0 {
			dissent = append(dissent, fmt.Sprintf("%s: %s — %s", v.agent, v.decision.Action, v.decision.Reasoning[0]))
		} else {
			dissent = append(dissent, fmt.Sprintf("%s: %s", v.agent, v.decision.Action))
		}
	}

	avgConf := stat.Mean(confs, nil)
	avgSize := stat.Mean(sizes, nil)
	confVar := stat.PopVariance(confs, nil)

	riskScore := avgSize*100 + 10*confVar
	if riskScore > 10 {
		riskScore = 10
	}

	final := domain.AgentDecision{
		Action:       winner,
		Confidence:   avgConf,
		Reasoning:    collect(succeeded, maxReasoning, func(d domain.AgentDecision) []string { return d.Reasoning }),
		Questions:    collect(succeeded, maxQuestions, func(d domain.AgentDecision) []string { return d.Questions }),
		PositionSize: avgSize,
	}
	final.RiskNote, final.Timeline = leadVoiceFields(succeeded, winner)
	final.StopLoss = meanOptional(succeeded, winner, func(d domain.AgentDecision) *float64 { return d.StopLoss })
	final.TakeProfit = meanOptional(succeeded, winner, func(d domain.AgentDecision) *float64 { return d.TakeProfit })

	consensus := domain.TeamConsensus{
		FinalDecision:     final,
		PerAgentVotes:     perAgent,
		ConsensusStrength: float64(agreeCount) / float64(len(succeeded)),
		DissentingViews:   dissent,
		RiskScore:         riskScore,
	}

	b.publish(ctx, snap, succeeded, consensus)

	b.logger.InfoContext(ctx, "consensus reached",
		slog.String("symbol", snap.Symbol),
		slog.String("action", string(winner)),
		slog.Float64("strength", consensus.ConsensusStrength),
		slog.Float64("risk_score", consensus.RiskScore),
		slog.Int("agents", len(succeeded)),
		slog.Int("dissenting", len(dissent)),
	)
	return consensus, nil
}

// winningAction picks the action with the maximum confidence-weighted sum.
// Ties break by raw vote count, then lexicographically by action name, so a
// round is reproducible for a fixed set of votes.
func winningAction(succeeded []vote) domain.Action {
	type tally struct {
		weight float64
		count  int
	}
	tallies := make(map[domain.Action]*tally)
	for _, v := range succeeded {
		t, ok := tallies[v.decision.Action]
		if !ok {
			t = &tally{}
			tallies[v.decision.Action] = t
		}
		t.weight += v.decision.Confidence
		t.count++
	}

	actions := make([]domain.Action, 0, len(tallies))
	for a := range tallies {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool {
		ti, tj := tallies[actions[i]], tallies[actions[j]]
		if ti.weight != tj.weight {
			return ti.weight > tj.weight
		}
		if ti.count != tj.count {
			return ti.count > tj.count
		}
		return actions[i] < actions[j]
	})
	return actions[0]
}

// collect concatenates per-agent items in registration order, capped at max.
func collect(succeeded []vote, max int, pick func(domain.AgentDecision) []string) []string {
	var out []string
	for _, v := range succeeded {
		for _, item := range pick(v.decision) {
			if len(out) == max {
				return out
			}
			out = append(out, item)
		}
	}
	return out
}

// leadVoiceFields takes the risk note and timeline from the most confident
// agent that voted the winning action.
func leadVoiceFields(succeeded []vote, winner domain.Action) (riskNote, timeline string) {
	best := -1.0
	for _, v := range succeeded {
		if v.decision.Action == winner && v.decision.Confidence > best {
			best = v.decision.Confidence
			riskNote = v.decision.RiskNote
			timeline = v.decision.Timeline
		}
	}
	return riskNote, timeline
}

// meanOptional averages an optional price level over the winning voters that
// set it; nil when no winning voter did.
func meanOptional(succeeded []vote, winner domain.Action, pick func(domain.AgentDecision) *float64) *float64 {
	var sum float64
	var n int
	for _, v := range succeeded {
		if v.decision.Action != winner {
			continue
		}
		if p := pick(v.decision); p != nil {
			sum += *p
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// publish emits the per-agent decision events and the consensus event. Event
// delivery is best-effort; failures are logged, never fatal to the round.
func (b *Builder) publish(ctx context.Context, snap domain.MarketSnapshot, succeeded []vote, consensus domain.TeamConsensus) {
	if b.bus == nil {
		return
	}
	now := b.clock.Now()
	for _, v := range succeeded {
		evt, _ := json.Marshal(domain.AgentDecisionMade{
			Type:      "agent_decision",
			Agent:     v.agent,
			Symbol:    snap.Symbol,
			Decision:  v.decision,
			Timestamp: now,
		})
		if err := b.bus.Publish(ctx, domain.ChannelDecision, evt); err != nil {
			b.logger.WarnContext(ctx, "publish agent decision failed",
				slog.String("agent", v.agent),
				slog.String("error", err.Error()),
			)
		}
	}
	evt, _ := json.Marshal(domain.TeamConsensusReached{
		Type:      "team_consensus",
		Symbol:    snap.Symbol,
		Consensus: consensus,
		Timestamp: now,
	})
	if err := b.bus.Publish(ctx, domain.ChannelConsensus, evt); err != nil {
		b.logger.WarnContext(ctx, "publish consensus failed",
			slog.String("symbol", snap.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
