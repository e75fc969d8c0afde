package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/ledger"
	"github.com/alanyoungcy/tradecouncil/internal/notify"
	"github.com/alanyoungcy/tradecouncil/internal/portfolio"
	"github.com/alanyoungcy/tradecouncil/internal/service"
	"github.com/alanyoungcy/tradecouncil/internal/social"
)

const archiveRetention = 90 * 24 * time.Hour

// Orchestrator manages all background goroutines: the council evaluation
// loop, the prediction sweeper, the social monitor, the resolution event
// router, notification fan-out, and the cron-scheduled maintenance jobs.
type Orchestrator struct {
	council      *service.CouncilService
	sweeper      *ledger.Sweeper
	monitor      *social.Monitor
	router       *service.EventRouter
	watcher      *notify.Watcher
	tracker      *portfolio.Tracker
	archiver     domain.Archiver
	watchlist    []string
	timeframe    domain.Timeframe
	evalInterval time.Duration
	socialTick   time.Duration
	snapshotCron string
	archiveCron  string
	logger       *slog.Logger
}

// NewOrchestrator creates a new Orchestrator that coordinates all background
// sub-systems. The monitor, watcher, and archiver are optional; pass nil to
// skip the corresponding loop.
func NewOrchestrator(
	council *service.CouncilService,
	sweeper *ledger.Sweeper,
	monitor *social.Monitor,
	router *service.EventRouter,
	watcher *notify.Watcher,
	tracker *portfolio.Tracker,
	archiver domain.Archiver,
	watchlist []string,
	timeframe domain.Timeframe,
	evalInterval time.Duration,
	socialTick time.Duration,
	snapshotCron string,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		council:      council,
		sweeper:      sweeper,
		monitor:      monitor,
		router:       router,
		watcher:      watcher,
		tracker:      tracker,
		archiver:     archiver,
		watchlist:    watchlist,
		timeframe:    timeframe,
		evalInterval: evalInterval,
		socialTick:   socialTick,
		snapshotCron: snapshotCron,
		archiveCron:  archiveCron,
		logger:       logger,
	}
}

// Run starts all sub-systems as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any goroutine returns a non-context
// error, the errgroup cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator starting",
		slog.Duration("eval_interval", o.evalInterval),
		slog.Any("watchlist", o.watchlist),
		slog.String("timeframe", string(o.timeframe)),
	)

	g, ctx := errgroup.WithContext(ctx)

	// 1. Council evaluation loop on ticker.
	g.Go(func() error {
		o.logger.Info("starting council evaluation loop")
		err := o.runEvaluationLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("evaluation loop: %w", err)
	})

	// 2. Prediction sweeper resolving due predictions.
	g.Go(func() error {
		o.logger.Info("starting prediction sweeper")
		err := o.sweeper.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("sweeper: %w", err)
	})

	// 3. Resolution event router feeding the ranker and portfolio tracker.
	g.Go(func() error {
		o.logger.Info("starting event router")
		err := o.router.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("event router: %w", err)
	})

	// 4. Social monitor on its own tick.
	if o.monitor != nil {
		g.Go(func() error {
			o.logger.Info("starting social monitor")
			err := o.monitor.RunSimulated(ctx, o.socialTick)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("social monitor: %w", err)
		})
	}

	// 5. Notification watcher on consensus and resolution events.
	if o.watcher != nil {
		g.Go(func() error {
			o.logger.Info("starting notification watcher")
			err := o.watcher.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("notification watcher: %w", err)
		})
	}

	// 6. Cron-scheduled maintenance: daily portfolio snapshots and archival.
	g.Go(func() error {
		err := o.runCronJobs(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("cron jobs: %w", err)
	})

	err := g.Wait()
	if err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("orchestrator stopped cleanly")
	return nil
}

// runEvaluationLoop convenes the council for every watchlist symbol on a
// fixed interval. The first round runs immediately on start.
func (o *Orchestrator) runEvaluationLoop(ctx context.Context) error {
	o.council.EvaluateAll(ctx, o.watchlist, o.timeframe)

	ticker := time.NewTicker(o.evalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("council evaluation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			o.council.EvaluateAll(ctx, o.watchlist, o.timeframe)
		}
	}
}

// runCronJobs schedules the daily portfolio value snapshot and the
// cold-storage prediction archive using standard cron expressions. Job
// failures are logged and retried on the next scheduled run.
func (o *Orchestrator) runCronJobs(ctx context.Context) error {
	c := cron.New()

	_, err := c.AddFunc(o.snapshotCron, func() {
		if snapErr := o.tracker.SnapshotValues(ctx); snapErr != nil {
			o.logger.Error("portfolio snapshot failed", slog.String("error", snapErr.Error()))
			return
		}
		o.logger.Info("portfolio values snapshotted")
	})
	if err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", o.snapshotCron, err)
	}

	if o.archiver != nil {
		_, err = c.AddFunc(o.archiveCron, func() {
			before := time.Now().UTC().Add(-archiveRetention)
			count, archErr := o.archiver.ArchivePredictions(ctx, before)
			if archErr != nil {
				o.logger.Error("prediction archive failed", slog.String("error", archErr.Error()))
				return
			}
			o.logger.Info("predictions archived", slog.Int64("count", count))
		})
		if err != nil {
			return fmt.Errorf("invalid archive schedule %q: %w", o.archiveCron, err)
		}
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		o.logger.Warn("cron jobs did not stop within grace period")
	}
	return ctx.Err()
}
