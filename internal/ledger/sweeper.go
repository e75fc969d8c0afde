package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

const (
	// defaultSweepInterval is how often the sweeper scans for due predictions.
	defaultSweepInterval = time.Minute

	// expiryFactor: a due prediction whose price still cannot be fetched after
	// this multiple of its timeframe is expired instead of retried. The
	// expired path exists for operational robustness only; it is never taken
	// while completed resolution is still possible.
	expiryFactor = 2

	// lockTTL bounds the per-prediction resolution lock held by one sweeper.
	lockTTL = 30 * time.Second
)

// Sweeper periodically resolves due predictions against live prices. Failures
// fetching the price for one prediction never block the sweep of the others.
type Sweeper struct {
	ledger   *Ledger
	store    domain.PredictionStore
	market   domain.MarketDataSource
	clock    domain.Clock
	locks    domain.LockManager // nil in single-process deployments
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to the
// default. locks may be nil when only one sweeper runs; the store's
// conditional status transition still guarantees single resolution.
func NewSweeper(
	ledger *Ledger,
	store domain.PredictionStore,
	market domain.MarketDataSource,
	clock domain.Clock,
	locks domain.LockManager,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		ledger:   ledger,
		store:    store,
		market:   market,
		clock:    clock,
		locks:    locks,
		interval: interval,
		logger:   logger.With(slog.String("component", "resolution_sweeper")),
	}
}

// Run sweeps on a ticker until the context is cancelled. In-flight resolutions
// finish before Run returns; the store's atomic transition makes a shutdown
// mid-sweep safe.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("resolution sweeper started", slog.Duration("interval", s.interval))
	defer s.logger.Info("resolution sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resolved, expired, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", slog.String("error", err.Error()))
				continue
			}
			if resolved > 0 || expired > 0 {
				s.logger.Info("sweep completed",
					slog.Int("resolved", resolved),
					slog.Int("expired", expired),
				)
			}
		}
	}
}

// SweepOnce resolves every due prediction once. It returns how many were
// completed and how many hit the operational expiry cutoff.
func (s *Sweeper) SweepOnce(ctx context.Context) (resolved, expired int, err error) {
	now := s.clock.Now()
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("sweeper: list due: %w", err)
	}

	for _, p := range due {
		if ctx.Err() != nil {
			return resolved, expired, ctx.Err()
		}
		switch s.sweepOne(ctx, p, now) {
		case sweepResolved:
			resolved++
		case sweepExpired:
			expired++
		}
	}
	return resolved, expired, nil
}

type sweepResult int

const (
	sweepSkipped sweepResult = iota
	sweepResolved
	sweepExpired
)

// sweepOne resolves a single due prediction, isolating its failures.
func (s *Sweeper) sweepOne(ctx context.Context, p domain.Prediction, now time.Time) sweepResult {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "resolve:"+p.ID, lockTTL)
		if err != nil {
			// Another sweeper owns this prediction.
			return sweepSkipped
		}
		defer unlock()
	}

	snap, err := s.market.GetMarketSnapshot(ctx, p.Symbol)
	if err != nil {
		cutoff := p.CreatedAt.Add(expiryFactor * p.Timeframe.Duration())
		if now.After(cutoff) {
			if expErr := s.ledger.Expire(ctx, p.ID); expErr != nil && !IsAlreadyResolved(expErr) {
				s.logger.Error("expire failed",
					slog.String("id", p.ID),
					slog.String("error", expErr.Error()),
				)
				return sweepSkipped
			}
			return sweepExpired
		}
		s.logger.Warn("price fetch failed, will retry next tick",
			slog.String("id", p.ID),
			slog.String("symbol", p.Symbol),
			slog.String("error", err.Error()),
		)
		return sweepSkipped
	}

	if _, err := s.ledger.Resolve(ctx, p.ID, snap.CurrentPrice); err != nil {
		if IsAlreadyResolved(err) {
			// Benign: another writer got there first.
			return sweepSkipped
		}
		s.logger.Error("resolution failed",
			slog.String("id", p.ID),
			slog.String("error", err.Error()),
		)
		return sweepSkipped
	}
	return sweepResolved
}
