package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PerformanceStore implements domain.PerformanceStore using PostgreSQL.
// The incrementally maintained inputs (recent outcomes, per-timeframe stats)
// are stored as JSONB so the ranker never rescans prediction history.
type PerformanceStore struct {
	pool *pgxpool.Pool
}

// NewPerformanceStore creates a new PerformanceStore backed by the given connection pool.
func NewPerformanceStore(pool *pgxpool.Pool) *PerformanceStore {
	return &PerformanceStore{pool: pool}
}

const performanceSelectCols = `agent_name, total_predictions, correct_predictions,
	accuracy, win_rate, total_profit_loss, avg_confidence, ranking,
	best_timeframe, recent_form, confidence_sum, recent_outcomes, by_timeframe,
	updated_at`

func scanPerformanceRow(row pgx.Row) (domain.AgentPerformance, error) {
	var p domain.AgentPerformance
	var bestTimeframe string
	var recentJSON, byTimeframeJSON []byte

	err := row.Scan(
		&p.AgentName, &p.TotalPredictions, &p.CorrectPredictions,
		&p.Accuracy, &p.WinRate, &p.TotalProfitLoss, &p.AvgConfidence, &p.Ranking,
		&bestTimeframe, &p.RecentForm, &p.ConfidenceSum, &recentJSON, &byTimeframeJSON,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.AgentPerformance{}, err
	}

	p.BestTimeframe = domain.Timeframe(bestTimeframe)
	if recentJSON != nil {
		if err := json.Unmarshal(recentJSON, &p.RecentOutcomes); err != nil {
			return domain.AgentPerformance{}, fmt.Errorf("unmarshal recent outcomes: %w", err)
		}
	}
	if byTimeframeJSON != nil {
		if err := json.Unmarshal(byTimeframeJSON, &p.ByTimeframe); err != nil {
			return domain.AgentPerformance{}, fmt.Errorf("unmarshal timeframe stats: %w", err)
		}
	}
	return p, nil
}

// Upsert inserts or fully replaces the performance record for an agent.
func (s *PerformanceStore) Upsert(ctx context.Context, perf domain.AgentPerformance) error {
	recentJSON, err := json.Marshal(perf.RecentOutcomes)
	if err != nil {
		return fmt.Errorf("postgres: marshal recent outcomes %s: %w", perf.AgentName, err)
	}
	byTimeframeJSON, err := json.Marshal(perf.ByTimeframe)
	if err != nil {
		return fmt.Errorf("postgres: marshal timeframe stats %s: %w", perf.AgentName, err)
	}

	const query = `
		INSERT INTO agent_performance (
			agent_name, total_predictions, correct_predictions,
			accuracy, win_rate, total_profit_loss, avg_confidence, ranking,
			best_timeframe, recent_form, confidence_sum, recent_outcomes, by_timeframe,
			updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14
		)
		ON CONFLICT (agent_name) DO UPDATE SET
			total_predictions   = EXCLUDED.total_predictions,
			correct_predictions = EXCLUDED.correct_predictions,
			accuracy            = EXCLUDED.accuracy,
			win_rate            = EXCLUDED.win_rate,
			total_profit_loss   = EXCLUDED.total_profit_loss,
			avg_confidence      = EXCLUDED.avg_confidence,
			ranking             = EXCLUDED.ranking,
			best_timeframe      = EXCLUDED.best_timeframe,
			recent_form         = EXCLUDED.recent_form,
			confidence_sum      = EXCLUDED.confidence_sum,
			recent_outcomes     = EXCLUDED.recent_outcomes,
			by_timeframe        = EXCLUDED.by_timeframe,
			updated_at          = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		perf.AgentName, perf.TotalPredictions, perf.CorrectPredictions,
		perf.Accuracy, perf.WinRate, perf.TotalProfitLoss, perf.AvgConfidence, perf.Ranking,
		string(perf.BestTimeframe), perf.RecentForm, perf.ConfidenceSum, recentJSON, byTimeframeJSON,
		perf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert performance %s: %w", perf.AgentName, err)
	}
	return nil
}

// GetByAgent retrieves the performance record for one agent.
func (s *PerformanceStore) GetByAgent(ctx context.Context, agent string) (domain.AgentPerformance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+performanceSelectCols+` FROM agent_performance WHERE agent_name = $1`, agent)

	p, err := scanPerformanceRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.AgentPerformance{}, domain.ErrNotFound
		}
		return domain.AgentPerformance{}, fmt.Errorf("postgres: get performance %s: %w", agent, err)
	}
	return p, nil
}

// ListAll returns every performance record ordered by ranking ascending,
// with unranked records last.
func (s *PerformanceStore) ListAll(ctx context.Context) ([]domain.AgentPerformance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+performanceSelectCols+` FROM agent_performance
		 ORDER BY CASE WHEN ranking = 0 THEN 1 ELSE 0 END, ranking ASC, agent_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list performance: %w", err)
	}
	defer rows.Close()

	var records []domain.AgentPerformance
	for rows.Next() {
		p, err := scanPerformanceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan performance: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list performance rows: %w", err)
	}
	return records, nil
}

// UpdateRankings writes the recomputed 1-based rankings in one batch.
func (s *PerformanceStore) UpdateRankings(ctx context.Context, rankings map[string]int) error {
	if len(rankings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for agent, rank := range rankings {
		batch.Queue(
			`UPDATE agent_performance SET ranking = $2, updated_at = NOW() WHERE agent_name = $1`,
			agent, rank,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rankings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: update rankings: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.PerformanceStore = (*PerformanceStore)(nil)
