package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/redis/go-redis/v9"
)

const snapshotTTL = 5 * time.Minute

// SnapshotCache implements domain.SnapshotCache using Redis hashes with
// JSON-serialized snapshot data.
//
// Key schema:
//
//	snapshot:{symbol} - hash with field "data" containing JSON
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(symbol string) string {
	return "snapshot:" + strings.ToUpper(symbol)
}

// SetSnapshot stores a MarketSnapshot with a 5-minute TTL. The TTL bounds
// how stale a snapshot served from cache can be.
func (sc *SnapshotCache) SetSnapshot(ctx context.Context, snap domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.Symbol, err)
	}

	key := snapshotKey(snap.Symbol)

	pipe := sc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, snapshotTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.Symbol, err)
	}
	return nil
}

// GetSnapshot retrieves the latest cached snapshot for a symbol.
// It returns domain.ErrNotFound when the key does not exist.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	data, err := sc.rdb.HGet(ctx, snapshotKey(symbol), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", symbol, err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", symbol, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
