package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PortfolioService defines the tracker methods the portfolio handler requires.
type PortfolioService interface {
	Get(ctx context.Context, userID string) (domain.UserAgentPortfolio, error)
	SelectAgents(ctx context.Context, userID string, agents []string, allocations map[string]float64) (domain.UserAgentPortfolio, error)
}

// PortfolioHandler serves portfolio-related HTTP endpoints.
type PortfolioHandler struct {
	portfolios PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and logger.
func NewPortfolioHandler(portfolios PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		logger:     logger,
	}
}

// GetPortfolio returns one user's portfolio.
// GET /api/portfolio/{userID}
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userID path parameter required")
		return
	}

	p, err := h.portfolios.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get portfolio failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// selectAgentsRequest is the body for agent selection.
type selectAgentsRequest struct {
	Agents      []string           `json:"agents"`
	Allocations map[string]float64 `json:"allocations"`
}

// SelectAgents replaces a user's followed agents and allocations.
// POST /api/portfolio/{userID}/agents
func (h *PortfolioHandler) SelectAgents(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userID path parameter required")
		return
	}

	var req selectAgentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := h.portfolios.SelectAgents(r.Context(), userID, req.Agents, req.Allocations)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAllocation) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: select agents failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update portfolio")
		return
	}

	writeJSON(w, http.StatusOK, p)
}
