package domain

import (
	"fmt"
	"time"
)

// Timeframe is the horizon over which a prediction is judged.
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// Duration converts the timeframe into a wall-clock duration.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	}
	return 0
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if tf.Duration() == 0 {
		return "", fmt.Errorf("invalid timeframe %q", s)
	}
	return tf, nil
}

// PredictionStatus is the lifecycle state of a prediction. Transitions are
// monotonic: active -> completed (resolved once) or active -> expired.
type PredictionStatus string

const (
	PredictionActive    PredictionStatus = "active"
	PredictionCompleted PredictionStatus = "completed"
	PredictionExpired   PredictionStatus = "expired"
)

// Outcome grades a completed prediction against the realized price.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomePartial   Outcome = "partial"
	OutcomeIncorrect Outcome = "incorrect"
)

// TeamUserID is the reserved owner for team-level predictions created from a
// consensus rather than a single user's request.
const TeamUserID = "team"

// Prediction is a persisted, time-bounded claim about future price direction.
// Records are append-only: resolution sets the outcome fields exactly once and
// nothing is ever deleted.
type Prediction struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	AgentName       string           `json:"agent_name"`
	Symbol          string           `json:"symbol"`
	Action          Action           `json:"action"`
	Confidence      float64          `json:"confidence"`
	TargetPrice     float64          `json:"target_price"`
	PriceAtCreation float64          `json:"price_at_creation"`
	Timeframe       Timeframe        `json:"timeframe"`
	Reasoning       []string         `json:"reasoning"`
	Status          PredictionStatus `json:"status"`

	// Set if and only if Status == PredictionCompleted.
	Outcome     Outcome    `json:"outcome,omitempty"`
	ActualPrice *float64   `json:"actual_price,omitempty"`
	ProfitLoss  *float64   `json:"profit_loss,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // CreatedAt + Timeframe
}

// Due reports whether the prediction's timeframe has elapsed at now.
func (p Prediction) Due(now time.Time) bool {
	return p.Status == PredictionActive && !now.Before(p.ExpiresAt)
}
