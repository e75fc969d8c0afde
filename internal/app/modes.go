package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradecouncil/internal/agent"
	"github.com/alanyoungcy/tradecouncil/internal/consensus"
	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/ledger"
	"github.com/alanyoungcy/tradecouncil/internal/notify"
	"github.com/alanyoungcy/tradecouncil/internal/pipeline"
	"github.com/alanyoungcy/tradecouncil/internal/portfolio"
	"github.com/alanyoungcy/tradecouncil/internal/ranking"
	"github.com/alanyoungcy/tradecouncil/internal/server"
	"github.com/alanyoungcy/tradecouncil/internal/server/handler"
	"github.com/alanyoungcy/tradecouncil/internal/server/ws"
	"github.com/alanyoungcy/tradecouncil/internal/service"
	"github.com/alanyoungcy/tradecouncil/internal/social"
)

// services bundles the domain services shared by the operating modes.
type services struct {
	council *service.CouncilService
	ledger  *ledger.Ledger
	sweeper *ledger.Sweeper
	ranker  *ranking.Ranker
	tracker *portfolio.Tracker
	router  *service.EventRouter
	monitor *social.Monitor
	watcher *notify.Watcher
}

// buildServices wires the council stack on top of the infrastructure
// dependencies: the expert registry, consensus builder, prediction ledger
// and sweeper, performance ranker, portfolio tracker, and the event plumbing
// that connects them.
func (a *App) buildServices(deps *Dependencies) *services {
	clock := domain.SystemClock{}

	registry := agent.NewRegistry()
	registry.Register(agent.NewMomentum())
	registry.Register(agent.NewMacro())
	registry.Register(agent.NewReflexivity())

	builder := consensus.NewBuilder(registry, deps.SignalBus, clock, a.cfg.Council.AgentTimeout.Duration, a.logger)
	ledg := ledger.New(deps.PredictionStore, deps.SignalBus, clock, ledger.DefaultPolicy(), a.logger)
	sweeper := ledger.NewSweeper(
		ledg, deps.PredictionStore, deps.MarketSource, clock, deps.LockManager,
		a.cfg.Council.SweepInterval.Duration, a.logger,
	)
	ranker := ranking.New(deps.PerformanceStore, deps.SignalBus, clock, a.logger)
	tracker := portfolio.New(deps.PortfolioStore, deps.SignalBus, clock, a.logger)

	council := service.NewCouncilService(
		deps.MarketSource, deps.SnapshotCache, deps.SentimentCache,
		builder, ledg, deps.AuditStore, a.logger,
	)
	router := service.NewEventRouter(deps.SignalBus, ranker, tracker, a.logger)

	svcs := &services{
		council: council,
		ledger:  ledg,
		sweeper: sweeper,
		ranker:  ranker,
		tracker: tracker,
		router:  router,
	}

	if a.cfg.Social.Enabled {
		svcs.monitor = social.NewMonitor(
			deps.SentimentCache, deps.SnapshotCache, deps.SignalBus, clock, a.logger,
		)
	}
	if deps.Notifier != nil && deps.Notifier.HasSenders() {
		svcs.watcher = notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	}

	return svcs
}

// CouncilMode runs the full service: the background orchestrator (evaluation
// loop, sweeper, social monitor, event router, cron jobs) plus the HTTP and
// WebSocket API. Standalone mode takes this same path over in-memory
// backends.
func (a *App) CouncilMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting council mode")

	svcs := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)

	orch := pipeline.NewOrchestrator(
		svcs.council, svcs.sweeper, svcs.monitor, svcs.router, svcs.watcher,
		svcs.tracker, deps.Archiver,
		a.cfg.Council.Watchlist,
		domain.Timeframe(a.cfg.Council.Timeframe),
		a.cfg.Council.EvalInterval.Duration,
		a.cfg.Social.Interval.Duration,
		a.cfg.Council.SnapshotCron,
		a.cfg.Archive.Cron,
		a.logger,
	)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// ServeMode runs only the HTTP and WebSocket API plus the event router, with
// no evaluation loop or sweeper. Use it to horizontally scale the query
// surface while a single council instance does the background work.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	svcs := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.router.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// startHTTPServer builds the API server and WebSocket hub and runs both on
// the errgroup, shutting the listener down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Predictions: handler.NewPredictionHandler(svcs.ledger, a.logger),
		Leaderboards: handler.NewLeaderboardHandler(&handler.LeaderboardSources{
			Agents: svcs.ranker,
			Users:  svcs.tracker,
		}, a.logger),
		Portfolios: handler.NewPortfolioHandler(svcs.tracker, a.logger),
		Council:    handler.NewCouncilHandler(svcs.council, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RateLimit:     a.cfg.Server.RateLimit,
		RateLimitSecs: a.cfg.Server.RateLimitSecs,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})
}
