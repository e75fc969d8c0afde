package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/portfolio"
	"github.com/alanyoungcy/tradecouncil/internal/ranking"
)

// EventRouter subscribes to the ledger's lifecycle channels and drives the
// downstream aggregates: the performance ranker and the portfolio tracker.
// Routing through the bus keeps the ledger decoupled from its consumers and
// works identically over redis pub/sub and the in-memory bus.
type EventRouter struct {
	bus     domain.SignalBus
	ranker  *ranking.Ranker
	tracker *portfolio.Tracker
	logger  *slog.Logger
}

// NewEventRouter creates an EventRouter.
func NewEventRouter(bus domain.SignalBus, ranker *ranking.Ranker, tracker *portfolio.Tracker, logger *slog.Logger) *EventRouter {
	return &EventRouter{
		bus:     bus,
		ranker:  ranker,
		tracker: tracker,
		logger:  logger.With(slog.String("component", "event_router")),
	}
}

// Run consumes lifecycle events until the context is cancelled.
func (r *EventRouter) Run(ctx context.Context) error {
	created, err := r.bus.Subscribe(ctx, domain.ChannelPrediction)
	if err != nil {
		return err
	}
	resolved, err := r.bus.Subscribe(ctx, domain.ChannelResolution)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.consumeCreated(ctx, created) })
	g.Go(func() error { return r.consumeResolved(ctx, resolved) })
	return g.Wait()
}

func (r *EventRouter) consumeCreated(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt domain.PredictionCreated
			if err := json.Unmarshal(payload, &evt); err != nil {
				r.logger.Warn("bad prediction event", slog.String("error", err.Error()))
				continue
			}
			if err := r.tracker.ApplyPredictionCreated(ctx, evt.Prediction); err != nil {
				r.logger.Error("portfolio prediction-created update failed",
					slog.String("prediction_id", evt.Prediction.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (r *EventRouter) consumeResolved(ctx context.Context, msgs <-chan []byte) error {
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
				r.logger.Warn("bad resolution event", slog.String("error", err.Error()))
				continue
			}
			r.applyResolution(ctx, evt.Prediction)
		}
	}
}

// applyResolution feeds one resolved prediction to both aggregates. Failures
// are isolated: a ranker error does not block the portfolio update.
func (r *EventRouter) applyResolution(ctx context.Context, pred domain.Prediction) {
	if err := r.ranker.ApplyResolution(ctx, pred); err != nil {
		r.logger.Error("ranking update failed",
			slog.String("prediction_id", pred.ID),
			slog.String("agent", pred.AgentName),
			slog.String("error", err.Error()))
	}
	if err := r.tracker.ApplyResolution(ctx, pred); err != nil {
		r.logger.Error("portfolio update failed",
			slog.String("prediction_id", pred.ID),
			slog.String("agent", pred.AgentName),
			slog.String("error", err.Error()))
	}
}
