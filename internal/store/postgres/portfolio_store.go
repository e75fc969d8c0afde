package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore using PostgreSQL.
// Agent selections, allocations, active prediction ids and the value history
// are stored as JSONB columns on a single row per user.
type PortfolioStore struct {
	pool *pgxpool.Pool
}

// NewPortfolioStore creates a new PortfolioStore backed by the given connection pool.
func NewPortfolioStore(pool *pgxpool.Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

const portfolioSelectCols = `user_id, selected_agents, allocations, total_value,
	perf_daily, perf_weekly, perf_monthly, perf_all_time,
	active_predictions, rank, value_history, created_at, updated_at`

func scanPortfolioRow(row pgx.Row) (domain.UserAgentPortfolio, error) {
	var p domain.UserAgentPortfolio
	var agentsJSON, allocationsJSON, activeJSON, historyJSON []byte

	err := row.Scan(
		&p.UserID, &agentsJSON, &allocationsJSON, &p.TotalValue,
		&p.Performance.Daily, &p.Performance.Weekly, &p.Performance.Monthly, &p.Performance.AllTime,
		&activeJSON, &p.Rank, &historyJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.UserAgentPortfolio{}, err
	}

	if agentsJSON != nil {
		if err := json.Unmarshal(agentsJSON, &p.SelectedAgents); err != nil {
			return domain.UserAgentPortfolio{}, fmt.Errorf("unmarshal selected agents: %w", err)
		}
	}
	if allocationsJSON != nil {
		if err := json.Unmarshal(allocationsJSON, &p.Allocations); err != nil {
			return domain.UserAgentPortfolio{}, fmt.Errorf("unmarshal allocations: %w", err)
		}
	}
	if activeJSON != nil {
		if err := json.Unmarshal(activeJSON, &p.ActivePredictions); err != nil {
			return domain.UserAgentPortfolio{}, fmt.Errorf("unmarshal active predictions: %w", err)
		}
	}
	if historyJSON != nil {
		if err := json.Unmarshal(historyJSON, &p.ValueHistory); err != nil {
			return domain.UserAgentPortfolio{}, fmt.Errorf("unmarshal value history: %w", err)
		}
	}
	return p, nil
}

// Upsert inserts or fully replaces a user's portfolio.
func (s *PortfolioStore) Upsert(ctx context.Context, p domain.UserAgentPortfolio) error {
	agentsJSON, err := json.Marshal(p.SelectedAgents)
	if err != nil {
		return fmt.Errorf("postgres: marshal selected agents %s: %w", p.UserID, err)
	}
	allocationsJSON, err := json.Marshal(p.Allocations)
	if err != nil {
		return fmt.Errorf("postgres: marshal allocations %s: %w", p.UserID, err)
	}
	activeJSON, err := json.Marshal(p.ActivePredictions)
	if err != nil {
		return fmt.Errorf("postgres: marshal active predictions %s: %w", p.UserID, err)
	}
	historyJSON, err := json.Marshal(p.ValueHistory)
	if err != nil {
		return fmt.Errorf("postgres: marshal value history %s: %w", p.UserID, err)
	}

	const query = `
		INSERT INTO portfolios (
			user_id, selected_agents, allocations, total_value,
			perf_daily, perf_weekly, perf_monthly, perf_all_time,
			active_predictions, rank, value_history, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
		ON CONFLICT (user_id) DO UPDATE SET
			selected_agents    = EXCLUDED.selected_agents,
			allocations        = EXCLUDED.allocations,
			total_value        = EXCLUDED.total_value,
			perf_daily         = EXCLUDED.perf_daily,
			perf_weekly        = EXCLUDED.perf_weekly,
			perf_monthly       = EXCLUDED.perf_monthly,
			perf_all_time      = EXCLUDED.perf_all_time,
			active_predictions = EXCLUDED.active_predictions,
			rank               = EXCLUDED.rank,
			value_history      = EXCLUDED.value_history,
			updated_at         = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		p.UserID, agentsJSON, allocationsJSON, p.TotalValue,
		p.Performance.Daily, p.Performance.Weekly, p.Performance.Monthly, p.Performance.AllTime,
		activeJSON, p.Rank, historyJSON, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert portfolio %s: %w", p.UserID, err)
	}
	return nil
}

// GetByUser retrieves a user's portfolio.
func (s *PortfolioStore) GetByUser(ctx context.Context, userID string) (domain.UserAgentPortfolio, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+portfolioSelectCols+` FROM portfolios WHERE user_id = $1`, userID)

	p, err := scanPortfolioRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserAgentPortfolio{}, domain.ErrNotFound
		}
		return domain.UserAgentPortfolio{}, fmt.Errorf("postgres: get portfolio %s: %w", userID, err)
	}
	return p, nil
}

// ListAll returns every portfolio ordered by rank ascending, with unranked
// portfolios last.
func (s *PortfolioStore) ListAll(ctx context.Context) ([]domain.UserAgentPortfolio, error) {
	return s.list(ctx,
		`SELECT `+portfolioSelectCols+` FROM portfolios
		 ORDER BY CASE WHEN rank = 0 THEN 1 ELSE 0 END, rank ASC, user_id ASC`)
}

// ListBySelectedAgent returns portfolios whose allocations include the given
// agent, using the JSONB key-existence operator.
func (s *PortfolioStore) ListBySelectedAgent(ctx context.Context, agent string) ([]domain.UserAgentPortfolio, error) {
	return s.list(ctx,
		`SELECT `+portfolioSelectCols+` FROM portfolios
		 WHERE allocations ? $1
		 ORDER BY user_id ASC`, agent)
}

func (s *PortfolioStore) list(ctx context.Context, query string, args ...any) ([]domain.UserAgentPortfolio, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.UserAgentPortfolio
	for rows.Next() {
		p, err := scanPortfolioRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list portfolios rows: %w", err)
	}
	return portfolios, nil
}

// UpdateRanks writes the recomputed 1-based ranks in one batch.
func (s *PortfolioStore) UpdateRanks(ctx context.Context, ranks map[string]int) error {
	if len(ranks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for userID, rank := range ranks {
		batch.Queue(
			`UPDATE portfolios SET rank = $2, updated_at = NOW() WHERE user_id = $1`,
			userID, rank,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ranks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: update portfolio ranks: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.PortfolioStore = (*PortfolioStore)(nil)
