package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// RankingService defines the ranker methods the leaderboard handler requires.
type RankingService interface {
	Leaderboard(ctx context.Context) ([]domain.AgentPerformance, error)
}

// UserLeaderboardService defines the portfolio methods the leaderboard
// handler requires.
type UserLeaderboardService interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.UserAgentPortfolio, error)
}

// LeaderboardHandler serves the agent and user leaderboard endpoints.
type LeaderboardHandler struct {
	agents *LeaderboardSources
	logger *slog.Logger
}

// LeaderboardSources bundles the two leaderboard backends.
type LeaderboardSources struct {
	Agents RankingService
	Users  UserLeaderboardService
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(sources *LeaderboardSources, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		agents: sources,
		logger: logger,
	}
}

// AgentLeaderboard returns every agent's performance record in ranking order.
// GET /api/leaderboard/agents
func (h *LeaderboardHandler) AgentLeaderboard(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.agents.Agents.Leaderboard(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: agent leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load agent leaderboard")
		return
	}

	if rankings == nil {
		rankings = []domain.AgentPerformance{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"agents": rankings})
}

// UserLeaderboard returns user portfolios ordered by total value.
// GET /api/leaderboard/users?limit=50
func (h *LeaderboardHandler) UserLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	users, err := h.agents.Users.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: user leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load user leaderboard")
		return
	}

	if users == nil {
		users = []domain.UserAgentPortfolio{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
