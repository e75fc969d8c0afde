package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradecouncil/internal/consensus"
	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/ledger"
)

// CouncilService runs evaluation rounds: it assembles a market snapshot,
// gathers the expert council's consensus, and records predictions for the
// agents that voted with the winning action.
type CouncilService struct {
	source     domain.MarketDataSource
	snapshots  domain.SnapshotCache
	sentiments domain.SentimentCache
	builder    *consensus.Builder
	ledger     *ledger.Ledger
	audit      domain.AuditStore
	logger     *slog.Logger
}

// NewCouncilService creates a CouncilService with all required dependencies.
// The audit store may be nil in standalone mode.
func NewCouncilService(
	source domain.MarketDataSource,
	snapshots domain.SnapshotCache,
	sentiments domain.SentimentCache,
	builder *consensus.Builder,
	ledg *ledger.Ledger,
	audit domain.AuditStore,
	logger *slog.Logger,
) *CouncilService {
	return &CouncilService{
		source:     source,
		snapshots:  snapshots,
		sentiments: sentiments,
		builder:    builder,
		ledger:     ledg,
		audit:      audit,
		logger:     logger.With(slog.String("component", "council_service")),
	}
}

// EvaluationResult is the outcome of one council round on one symbol.
type EvaluationResult struct {
	Snapshot    domain.MarketSnapshot `json:"snapshot"`
	Consensus   domain.TeamConsensus  `json:"consensus"`
	Predictions []domain.Prediction   `json:"predictions"`
}

// Snapshot assembles a fresh MarketSnapshot for a symbol: live market data
// merged with the rolling sentiment window. When the upstream feed is down
// it falls back to the last cached snapshot rather than failing the round.
func (s *CouncilService) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	snap, err := s.source.GetMarketSnapshot(ctx, symbol)
	if err != nil {
		cached, cacheErr := s.snapshots.GetSnapshot(ctx, symbol)
		if cacheErr != nil {
			return domain.MarketSnapshot{}, fmt.Errorf("council_service: snapshot %s: %w", symbol, err)
		}
		s.logger.WarnContext(ctx, "market data unavailable, serving cached snapshot",
			slog.String("symbol", symbol),
			slog.Time("cached_at", cached.Timestamp),
			slog.String("error", err.Error()))
		return cached, nil
	}

	// Default to neutral sentiment when the social monitor has nothing yet.
	snap.Sentiment = 0.5
	if rec, err := s.sentiments.GetSentiment(ctx, symbol); err == nil {
		snap.Sentiment = rec.Score
		snap.SocialMentions = rec.Mentions
		snap.InfluencerCount = rec.Influencers
	}

	if err := s.snapshots.SetSnapshot(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
	}
	return snap, nil
}

// Evaluate runs one full council round for a symbol: snapshot, consensus,
// and one prediction per agent that voted with the winning action. Each of
// those predictions carries the agent's own confidence and target so the
// ranker can grade agents individually.
func (s *CouncilService) Evaluate(ctx context.Context, symbol string, tf domain.Timeframe, userID string) (EvaluationResult, error) {
	if userID == "" {
		userID = domain.TeamUserID
	}

	snap, err := s.Snapshot(ctx, symbol)
	if err != nil {
		return EvaluationResult{}, err
	}

	teamConsensus, err := s.builder.Build(ctx, snap)
	if err != nil {
		return EvaluationResult{}, fmt.Errorf("council_service: consensus %s: %w", symbol, err)
	}

	result := EvaluationResult{Snapshot: snap, Consensus: teamConsensus}

	winner := teamConsensus.FinalDecision.Action
	for agentName, dec := range teamConsensus.PerAgentVotes {
		if dec.Action != winner {
			continue
		}
		pred, err := s.ledger.Create(ctx, dec, agentName, snap, tf, userID)
		if err != nil {
			s.logger.ErrorContext(ctx, "prediction create failed",
				slog.String("agent", agentName),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
			continue
		}
		result.Predictions = append(result.Predictions, pred)
	}

	if s.audit != nil {
		if auditErr := s.audit.Log(ctx, "council_evaluated", map[string]any{
			"symbol":             symbol,
			"timeframe":          string(tf),
			"user_id":            userID,
			"action":             string(winner),
			"consensus_strength": teamConsensus.ConsensusStrength,
			"risk_score":         teamConsensus.RiskScore,
			"predictions":        len(result.Predictions),
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "audit log failed",
				slog.String("symbol", symbol),
				slog.String("error", auditErr.Error()))
		}
	}

	return result, nil
}

// EvaluateAll runs Evaluate over a watchlist, isolating per-symbol failures.
// A symbol without quorum or market data is logged and skipped.
func (s *CouncilService) EvaluateAll(ctx context.Context, symbols []string, tf domain.Timeframe) {
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Evaluate(ctx, symbol, tf, domain.TeamUserID); err != nil {
			level := slog.LevelError
			if errors.Is(err, domain.ErrNoQuorum) || errors.Is(err, domain.ErrMarketDataUnavailable) {
				level = slog.LevelWarn
			}
			s.logger.Log(ctx, level, "evaluation failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()))
		}
	}
}
