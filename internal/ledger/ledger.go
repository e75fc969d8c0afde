// Package ledger owns the prediction lifecycle: creation, the single
// active -> completed transition, and the time-driven resolution sweep.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// Ledger turns decisions into persisted predictions and resolves them against
// realized prices. It is the only component that transitions prediction state.
type Ledger struct {
	store  domain.PredictionStore
	bus    domain.SignalBus
	clock  domain.Clock
	policy Policy
	logger *slog.Logger
}

// New creates a Ledger.
func New(store domain.PredictionStore, bus domain.SignalBus, clock domain.Clock, policy Policy, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		bus:    bus,
		clock:  clock,
		policy: policy,
		logger: logger.With(slog.String("component", "prediction_ledger")),
	}
}

// Create persists a new active prediction from a decision. The agent name is
// the voting agent, or the team identity for consensus-level predictions.
func (l *Ledger) Create(
	ctx context.Context,
	dec domain.AgentDecision,
	agentName string,
	snap domain.MarketSnapshot,
	tf domain.Timeframe,
	userID string,
) (domain.Prediction, error) {
	if snap.CurrentPrice <= 0 {
		return domain.Prediction{}, fmt.Errorf("ledger: create for %s: %w", snap.Symbol, domain.ErrMarketDataUnavailable)
	}
	if tf.Duration() == 0 {
		return domain.Prediction{}, fmt.Errorf("ledger: create for %s: invalid timeframe %q", snap.Symbol, tf)
	}

	now := l.clock.Now()
	p := domain.Prediction{
		ID:              uuid.NewString(),
		UserID:          userID,
		AgentName:       agentName,
		Symbol:          snap.Symbol,
		Action:          dec.Action,
		Confidence:      dec.Confidence,
		TargetPrice:     l.policy.TargetPrice(dec, snap.CurrentPrice, tf),
		PriceAtCreation: snap.CurrentPrice,
		Timeframe:       tf,
		Reasoning:       dec.Reasoning,
		Status:          domain.PredictionActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(tf.Duration()),
	}

	if err := l.store.Create(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("ledger: create prediction %s: %w", p.ID, err)
	}

	l.publish(ctx, domain.ChannelPrediction, domain.PredictionCreated{Type: "prediction_created", Prediction: p})

	l.logger.InfoContext(ctx, "prediction created",
		slog.String("id", p.ID),
		slog.String("agent", p.AgentName),
		slog.String("symbol", p.Symbol),
		slog.String("action", string(p.Action)),
		slog.String("timeframe", string(p.Timeframe)),
		slog.Float64("target_price", p.TargetPrice),
	)
	return p, nil
}

// Resolve applies the realized price to an active prediction, exactly once.
// A second call for the same id returns domain.ErrAlreadyResolved and leaves
// the first outcome untouched.
func (l *Ledger) Resolve(ctx context.Context, id string, actualPrice float64) (domain.Prediction, error) {
	p, err := l.store.GetByID(ctx, id)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("ledger: resolve %s: %w", id, err)
	}
	if p.Status != domain.PredictionActive {
		return p, fmt.Errorf("ledger: resolve %s (status %s): %w", id, p.Status, domain.ErrAlreadyResolved)
	}

	outcome, pnl := l.policy.Grade(p, actualPrice)
	res := domain.Resolution{
		Outcome:     outcome,
		ActualPrice: actualPrice,
		ProfitLoss:  pnl,
		ResolvedAt:  l.clock.Now(),
	}

	ok, err := l.store.MarkCompleted(ctx, id, res)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("ledger: mark completed %s: %w", id, err)
	}
	if !ok {
		// Lost the transition race; the winner's outcome stands. The locking
		// discipline should make this unreachable.
		l.logger.ErrorContext(ctx, "assertion: concurrent resolution detected",
			slog.String("id", id),
		)
		return p, fmt.Errorf("ledger: resolve %s: %w", id, domain.ErrAlreadyResolved)
	}

	p.Status = domain.PredictionCompleted
	p.Outcome = res.Outcome
	p.ActualPrice = &res.ActualPrice
	p.ProfitLoss = &res.ProfitLoss
	p.ResolvedAt = &res.ResolvedAt

	l.publish(ctx, domain.ChannelResolution, domain.PredictionResolved{Type: "prediction_resolved", Prediction: p})

	l.logger.InfoContext(ctx, "prediction resolved",
		slog.String("id", p.ID),
		slog.String("agent", p.AgentName),
		slog.String("symbol", p.Symbol),
		slog.String("outcome", string(p.Outcome)),
		slog.Float64("actual_price", actualPrice),
		slog.Float64("profit_loss", res.ProfitLoss),
	)
	return p, nil
}

// Expire transitions an active prediction to expired with no outcome. Used by
// the sweeper when no price could be observed before the operational cutoff.
func (l *Ledger) Expire(ctx context.Context, id string) error {
	ok, err := l.store.MarkExpired(ctx, id, l.clock.Now())
	if err != nil {
		return fmt.Errorf("ledger: expire %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("ledger: expire %s: %w", id, domain.ErrAlreadyResolved)
	}
	l.logger.WarnContext(ctx, "prediction expired without resolution", slog.String("id", id))
	return nil
}

// ListActive returns active predictions, optionally scoped to one user.
func (l *Ledger) ListActive(ctx context.Context, userID string) ([]domain.Prediction, error) {
	if userID != "" {
		preds, err := l.store.ListActiveByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("ledger: list active for %s: %w", userID, err)
		}
		return preds, nil
	}
	preds, err := l.store.ListActive(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("ledger: list active: %w", err)
	}
	return preds, nil
}

// ListRecent returns the most recent predictions, newest first.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	preds, err := l.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list recent: %w", err)
	}
	return preds, nil
}

// IsAlreadyResolved reports whether err is the benign double-resolution guard.
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, domain.ErrAlreadyResolved)
}

func (l *Ledger) publish(ctx context.Context, channel string, event any) {
	if l.bus == nil {
		return
	}
	payload, _ := json.Marshal(event)
	if err := l.bus.Publish(ctx, channel, payload); err != nil {
		l.logger.WarnContext(ctx, "publish ledger event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
