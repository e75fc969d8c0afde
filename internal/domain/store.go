package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Resolution carries the outcome fields set by the active -> completed
// transition.
type Resolution struct {
	Outcome     Outcome
	ActualPrice float64
	ProfitLoss  float64
	ResolvedAt  time.Time
}

// PredictionStore persists the append-only prediction ledger.
type PredictionStore interface {
	Create(ctx context.Context, p Prediction) error
	GetByID(ctx context.Context, id string) (Prediction, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Prediction, error)
	ListActiveByUser(ctx context.Context, userID string) ([]Prediction, error)
	ListRecent(ctx context.Context, limit int) ([]Prediction, error)
	// ListDue returns active predictions whose timeframe elapsed at or before now.
	ListDue(ctx context.Context, now time.Time) ([]Prediction, error)
	// MarkCompleted applies the resolution only when the row is still active.
	// It returns false when another writer already transitioned the record.
	MarkCompleted(ctx context.Context, id string, res Resolution) (bool, error)
	// MarkExpired transitions an active prediction to expired with no outcome.
	MarkExpired(ctx context.Context, id string, at time.Time) (bool, error)
	// ListResolvedBefore returns completed/expired predictions resolved before
	// cutoff, for cold-storage archival.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Prediction, error)
	Count(ctx context.Context) (int64, error)
}

// PerformanceStore persists per-agent track records.
type PerformanceStore interface {
	Upsert(ctx context.Context, perf AgentPerformance) error
	GetByAgent(ctx context.Context, agent string) (AgentPerformance, error)
	// ListAll returns every record ordered by ranking ascending.
	ListAll(ctx context.Context) ([]AgentPerformance, error)
	// UpdateRankings writes the recomputed 1-based rankings in one pass.
	UpdateRankings(ctx context.Context, rankings map[string]int) error
}

// PortfolioStore persists user portfolios.
type PortfolioStore interface {
	Upsert(ctx context.Context, p UserAgentPortfolio) error
	GetByUser(ctx context.Context, userID string) (UserAgentPortfolio, error)
	// ListAll returns every portfolio ordered by rank ascending.
	ListAll(ctx context.Context) ([]UserAgentPortfolio, error)
	// ListBySelectedAgent returns portfolios that follow the given agent.
	ListBySelectedAgent(ctx context.Context, agent string) ([]UserAgentPortfolio, error)
	UpdateRanks(ctx context.Context, ranks map[string]int) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
