package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPredictions struct {
	active []domain.Prediction
	recent []domain.Prediction
	err    error
}

func (s *stubPredictions) ListActive(_ context.Context, _ string) ([]domain.Prediction, error) {
	return s.active, s.err
}

func (s *stubPredictions) ListRecent(_ context.Context, _ int) ([]domain.Prediction, error) {
	return s.recent, s.err
}

type stubPortfolios struct {
	portfolio domain.UserAgentPortfolio
	err       error
}

func (s *stubPortfolios) Get(_ context.Context, _ string) (domain.UserAgentPortfolio, error) {
	return s.portfolio, s.err
}

func (s *stubPortfolios) SelectAgents(_ context.Context, userID string, agents []string, _ map[string]float64) (domain.UserAgentPortfolio, error) {
	if s.err != nil {
		return domain.UserAgentPortfolio{}, s.err
	}
	return domain.UserAgentPortfolio{UserID: userID, SelectedAgents: agents}, nil
}

type stubCouncil struct {
	result service.EvaluationResult
	err    error
}

func (s *stubCouncil) Evaluate(_ context.Context, _ string, _ domain.Timeframe, _ string) (service.EvaluationResult, error) {
	return s.result, s.err
}

func TestListActivePredictions(t *testing.T) {
	h := NewPredictionHandler(&stubPredictions{
		active: []domain.Prediction{{ID: "p1", Symbol: "DOGE"}},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body struct {
		Predictions []domain.Prediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, "p1", body.Predictions[0].ID)
}

func TestListActivePredictionsEmptyIsArray(t *testing.T) {
	h := NewPredictionHandler(&stubPredictions{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"predictions":[]}`, rec.Body.String())
}

func TestListActivePredictionsStoreError(t *testing.T) {
	h := NewPredictionHandler(&stubPredictions{err: context.DeadlineExceeded}, testLogger())

	rec := httptest.NewRecorder()
	h.ListActive(rec, httptest.NewRequest(http.MethodGet, "/api/predictions/active", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetPortfolioNotFound(t *testing.T) {
	h := NewPortfolioHandler(&stubPortfolios{err: domain.ErrNotFound}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/portfolio/{userID}", h.GetPortfolio)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectAgents(t *testing.T) {
	h := NewPortfolioHandler(&stubPortfolios{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/portfolio/{userID}/agents", h.SelectAgents)

	body := `{"agents":["momentum"],"allocations":{"momentum":50}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/portfolio/alice/agents", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.UserAgentPortfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "alice", p.UserID)
	assert.Equal(t, []string{"momentum"}, p.SelectedAgents)
}

func TestSelectAgentsInvalidAllocation(t *testing.T) {
	h := NewPortfolioHandler(&stubPortfolios{err: domain.ErrInvalidAllocation}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/portfolio/{userID}/agents", h.SelectAgents)

	body := `{"agents":["momentum"],"allocations":{"momentum":150}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/portfolio/alice/agents", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSelectAgentsBadBody(t *testing.T) {
	h := NewPortfolioHandler(&stubPortfolios{}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/portfolio/{userID}/agents", h.SelectAgents)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/portfolio/alice/agents", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCouncilEvaluate(t *testing.T) {
	h := NewCouncilHandler(&stubCouncil{
		result: service.EvaluationResult{
			Consensus: domain.TeamConsensus{
				FinalDecision: domain.AgentDecision{Action: domain.ActionBuy},
			},
		},
	}, testLogger())

	body := `{"symbol":"DOGE","timeframe":"1d"}`
	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/council/evaluate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var res service.EvaluationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.ActionBuy, res.Consensus.FinalDecision.Action)
}

func TestCouncilEvaluateValidation(t *testing.T) {
	h := NewCouncilHandler(&stubCouncil{}, testLogger())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing symbol", `{"timeframe":"1d"}`, http.StatusBadRequest},
		{"bad timeframe", `{"symbol":"DOGE","timeframe":"2d"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/council/evaluate", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCouncilEvaluateUpstreamErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"market data down", domain.ErrMarketDataUnavailable, http.StatusBadGateway},
		{"no quorum", domain.ErrNoQuorum, http.StatusServiceUnavailable},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewCouncilHandler(&stubCouncil{err: tc.err}, testLogger())
			rec := httptest.NewRecorder()
			h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/council/evaluate",
				strings.NewReader(`{"symbol":"DOGE","timeframe":"1d"}`)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
