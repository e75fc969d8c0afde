package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *pgxpool.Pool
}

// NewPredictionStore creates a new PredictionStore backed by the given connection pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

const predictionSelectCols = `id, user_id, agent_name, symbol, action, confidence,
	target_price, price_at_creation, timeframe, reasoning, status,
	outcome, actual_price, profit_loss, resolved_at, created_at, expires_at`

func scanPredictionRow(row pgx.Row) (domain.Prediction, error) {
	var p domain.Prediction
	var action, timeframe, status string
	var outcome *string
	var reasoningJSON []byte

	err := row.Scan(
		&p.ID, &p.UserID, &p.AgentName, &p.Symbol, &action, &p.Confidence,
		&p.TargetPrice, &p.PriceAtCreation, &timeframe, &reasoningJSON, &status,
		&outcome, &p.ActualPrice, &p.ProfitLoss, &p.ResolvedAt,
		&p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return domain.Prediction{}, err
	}

	p.Action = domain.Action(action)
	p.Timeframe = domain.Timeframe(timeframe)
	p.Status = domain.PredictionStatus(status)
	if outcome != nil {
		p.Outcome = domain.Outcome(*outcome)
	}
	if reasoningJSON != nil {
		if err := json.Unmarshal(reasoningJSON, &p.Reasoning); err != nil {
			return domain.Prediction{}, fmt.Errorf("unmarshal reasoning: %w", err)
		}
	}
	return p, nil
}

func (s *PredictionStore) queryPredictions(ctx context.Context, query string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []domain.Prediction
	for rows.Next() {
		p, err := scanPredictionRow(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// Create inserts a new prediction in the active state.
func (s *PredictionStore) Create(ctx context.Context, p domain.Prediction) error {
	reasoningJSON, err := json.Marshal(p.Reasoning)
	if err != nil {
		return fmt.Errorf("postgres: marshal reasoning %s: %w", p.ID, err)
	}

	const query = `
		INSERT INTO predictions (
			id, user_id, agent_name, symbol, action, confidence,
			target_price, price_at_creation, timeframe, reasoning, status,
			created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		)`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.UserID, p.AgentName, p.Symbol, string(p.Action), p.Confidence,
		p.TargetPrice, p.PriceAtCreation, string(p.Timeframe), reasoningJSON, string(p.Status),
		p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create prediction %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves a single prediction by its ID.
func (s *PredictionStore) GetByID(ctx context.Context, id string) (domain.Prediction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+predictionSelectCols+` FROM predictions WHERE id = $1`, id)

	p, err := scanPredictionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Prediction{}, domain.ErrNotFound
		}
		return domain.Prediction{}, fmt.Errorf("postgres: get prediction %s: %w", id, err)
	}
	return p, nil
}

// ListActive returns active predictions, newest first, with pagination and
// optional time filtering on creation time.
func (s *PredictionStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Prediction, error) {
	query := `SELECT ` + predictionSelectCols + ` FROM predictions WHERE status = 'active'`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	predictions, err := s.queryPredictions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active predictions: %w", err)
	}
	return predictions, nil
}

// ListActiveByUser returns a user's active predictions, newest first.
func (s *PredictionStore) ListActiveByUser(ctx context.Context, userID string) ([]domain.Prediction, error) {
	predictions, err := s.queryPredictions(ctx,
		`SELECT `+predictionSelectCols+` FROM predictions
		 WHERE user_id = $1 AND status = 'active'
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active predictions for %s: %w", userID, err)
	}
	return predictions, nil
}

// ListRecent returns the most recently created predictions in any state.
func (s *PredictionStore) ListRecent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	predictions, err := s.queryPredictions(ctx,
		`SELECT `+predictionSelectCols+` FROM predictions
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent predictions: %w", err)
	}
	return predictions, nil
}

// ListDue returns active predictions whose timeframe elapsed at or before now,
// oldest first so the longest-overdue predictions resolve first.
func (s *PredictionStore) ListDue(ctx context.Context, now time.Time) ([]domain.Prediction, error) {
	predictions, err := s.queryPredictions(ctx,
		`SELECT `+predictionSelectCols+` FROM predictions
		 WHERE status = 'active' AND expires_at <= $1
		 ORDER BY expires_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due predictions: %w", err)
	}
	return predictions, nil
}

// MarkCompleted applies the resolution only when the row is still active.
// The status guard in the WHERE clause makes the transition a compare-and-set:
// it returns false when another writer already transitioned the record.
func (s *PredictionStore) MarkCompleted(ctx context.Context, id string, res domain.Resolution) (bool, error) {
	const query = `
		UPDATE predictions SET
			status       = 'completed',
			outcome      = $2,
			actual_price = $3,
			profit_loss  = $4,
			resolved_at  = $5
		WHERE id = $1 AND status = 'active'`

	tag, err := s.pool.Exec(ctx, query,
		id, string(res.Outcome), res.ActualPrice, res.ProfitLoss, res.ResolvedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: mark prediction %s completed: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkExpired transitions an active prediction to expired with no outcome.
func (s *PredictionStore) MarkExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE predictions SET
			status      = 'expired',
			resolved_at = $2
		WHERE id = $1 AND status = 'active'`

	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("postgres: mark prediction %s expired: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListResolvedBefore returns completed and expired predictions resolved before
// the cutoff, oldest first, for cold-storage archival.
func (s *PredictionStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Prediction, error) {
	predictions, err := s.queryPredictions(ctx,
		`SELECT `+predictionSelectCols+` FROM predictions
		 WHERE status IN ('completed', 'expired') AND resolved_at < $1
		 ORDER BY resolved_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved predictions: %w", err)
	}
	return predictions, nil
}

// Count returns the total number of predictions in any state.
func (s *PredictionStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count predictions: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.PredictionStore = (*PredictionStore)(nil)
