package domain

import (
	"context"
	"time"
)

// MarketDataSource supplies fresh market snapshots on demand. Implementations
// must bound their calls with timeouts; failures surface as
// ErrMarketDataUnavailable.
type MarketDataSource interface {
	GetMarketSnapshot(ctx context.Context, symbol string) (MarketSnapshot, error)
}

// Clock abstracts time for the ledger and sweeper so resolution timing is
// testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
