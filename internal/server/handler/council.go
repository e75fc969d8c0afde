package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/service"
)

// CouncilService defines the evaluation methods the council handler requires.
type CouncilService interface {
	Evaluate(ctx context.Context, symbol string, tf domain.Timeframe, userID string) (service.EvaluationResult, error)
}

// CouncilHandler serves on-demand council evaluations.
type CouncilHandler struct {
	council CouncilService
	logger  *slog.Logger
}

// NewCouncilHandler creates a CouncilHandler with the given service and logger.
func NewCouncilHandler(council CouncilService, logger *slog.Logger) *CouncilHandler {
	return &CouncilHandler{
		council: council,
		logger:  logger,
	}
}

// evaluateRequest is the body for an on-demand evaluation.
type evaluateRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	UserID    string `json:"user_id"`
}

// Evaluate runs one council round for a symbol and returns the consensus and
// any predictions it recorded.
// POST /api/council/evaluate
func (h *CouncilHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	tf, err := domain.ParseTimeframe(req.Timeframe)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.council.Evaluate(r.Context(), req.Symbol, tf, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMarketDataUnavailable):
			writeError(w, http.StatusBadGateway, "market data unavailable")
		case errors.Is(err, domain.ErrNoQuorum):
			writeError(w, http.StatusServiceUnavailable, "no agent produced a decision")
		default:
			h.logger.ErrorContext(r.Context(), "handler: evaluate failed",
				slog.String("symbol", req.Symbol),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "evaluation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
