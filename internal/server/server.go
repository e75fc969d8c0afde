// Package server exposes the council's query surface over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/server/handler"
	"github.com/alanyoungcy/tradecouncil/internal/server/middleware"
	"github.com/alanyoungcy/tradecouncil/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port          int
	CORSOrigins   []string
	APIKey        string // if empty, authentication is disabled
	RateLimit     int    // requests per window per client; 0 disables limiting
	RateLimitSecs int    // window length in seconds, defaults to 60
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Predictions  *handler.PredictionHandler
	Leaderboards *handler.LeaderboardHandler
	Portfolios   *handler.PortfolioHandler
	Council      *handler.CouncilHandler
}

// Server is the headless HTTP + WebSocket API server for the council.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. The limiter may be nil when limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Prediction queries.
	mux.HandleFunc("GET /api/predictions/active", handlers.Predictions.ListActive)
	mux.HandleFunc("GET /api/predictions/recent", handlers.Predictions.ListRecent)

	// Leaderboards.
	mux.HandleFunc("GET /api/leaderboard/agents", handlers.Leaderboards.AgentLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/users", handlers.Leaderboards.UserLeaderboard)

	// Portfolios.
	mux.HandleFunc("GET /api/portfolio/{userID}", handlers.Portfolios.GetPortfolio)
	mux.HandleFunc("POST /api/portfolio/{userID}/agents", handlers.Portfolios.SelectAgents)

	// On-demand evaluation.
	mux.HandleFunc("POST /api/council/evaluate", handlers.Council.Evaluate)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		window := time.Duration(cfg.RateLimitSecs) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
