package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PredictionService defines the ledger methods the prediction handler requires.
type PredictionService interface {
	ListActive(ctx context.Context, userID string) ([]domain.Prediction, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Prediction, error)
}

// PredictionHandler serves the prediction query endpoints.
type PredictionHandler struct {
	predictions PredictionService
	logger      *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler with the given service and logger.
func NewPredictionHandler(predictions PredictionService, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictions: predictions,
		logger:      logger,
	}
}

// listPredictionsResponse wraps the prediction list responses.
type listPredictionsResponse struct {
	Predictions []domain.Prediction `json:"predictions"`
}

// ListActive returns active predictions, optionally filtered to one user.
// GET /api/predictions/active?user_id=...
func (h *PredictionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	predictions, err := h.predictions.ListActive(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list active predictions failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list active predictions")
		return
	}

	if predictions == nil {
		predictions = []domain.Prediction{}
	}

	writeJSON(w, http.StatusOK, listPredictionsResponse{Predictions: predictions})
}

// ListRecent returns the most recently created predictions in any state.
// GET /api/predictions/recent?limit=20
func (h *PredictionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	predictions, err := h.predictions.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent predictions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list recent predictions")
		return
	}

	if predictions == nil {
		predictions = []domain.Prediction{}
	}

	writeJSON(w, http.StatusOK, listPredictionsResponse{Predictions: predictions})
}
