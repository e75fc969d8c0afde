package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// Event types accepted by the notifier's filter configuration.
const (
	EventConsensus  = "consensus"
	EventResolution = "resolution"
)

// Watcher subscribes to council event channels and turns selected events
// into operator notifications.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher delivering through the given Notifier.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run consumes consensus and resolution events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	consensus, err := w.bus.Subscribe(ctx, domain.ChannelConsensus)
	if err != nil {
		return err
	}
	resolutions, err := w.bus.Subscribe(ctx, domain.ChannelResolution)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.consumeConsensus(ctx, consensus) })
	g.Go(func() error { return w.consumeResolutions(ctx, resolutions) })
	return g.Wait()
}

func (w *Watcher) consumeConsensus(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt domain.TeamConsensusReached
			if err := json.Unmarshal(payload, &evt); err != nil {
				continue
			}
			title := fmt.Sprintf("Council consensus: %s %s", evt.Consensus.FinalDecision.Action, evt.Symbol)
			message := fmt.Sprintf(
				"Action: %s\nConfidence: %.2f\nStrength: %.0f%%\nRisk score: %.1f/10\nDissent: %d view(s)",
				evt.Consensus.FinalDecision.Action,
				evt.Consensus.FinalDecision.Confidence,
				evt.Consensus.ConsensusStrength*100,
				evt.Consensus.RiskScore,
				len(evt.Consensus.DissentingViews),
			)
			if err := w.notifier.Notify(ctx, EventConsensus, title, message); err != nil {
				w.logger.WarnContext(ctx, "consensus notification failed",
					slog.String("symbol", evt.Symbol),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Watcher) consumeResolutions(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt domain.PredictionResolved
			if err := json.Unmarshal(payload, &evt); err != nil {
				continue
			}
			p := evt.Prediction

			var pnl float64
			if p.ProfitLoss != nil {
				pnl = *p.ProfitLoss
			}
			title := fmt.Sprintf("Prediction %s: %s %s", p.Outcome, p.AgentName, p.Symbol)
			message := fmt.Sprintf(
				"Agent: %s\nAction: %s %s\nTarget: %.6f\nActual: %.6f\nP&L: %+.2f",
				p.AgentName, p.Action, p.Symbol,
				p.TargetPrice, derefFloat(p.ActualPrice), pnl,
			)
			if err := w.notifier.Notify(ctx, EventResolution, title, message); err != nil {
				w.logger.WarnContext(ctx, "resolution notification failed",
					slog.String("prediction_id", p.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
