package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache in memory.
type SnapshotCache struct {
	mu   sync.RWMutex
	byID map[string]domain.MarketSnapshot
}

// NewSnapshotCache returns an empty SnapshotCache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{byID: make(map[string]domain.MarketSnapshot)}
}

// SetSnapshot stores the latest snapshot for its symbol.
func (c *SnapshotCache) SetSnapshot(_ context.Context, snap domain.MarketSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[snap.Symbol] = snap
	return nil
}

// GetSnapshot returns the latest snapshot for symbol.
func (c *SnapshotCache) GetSnapshot(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.byID[symbol]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

// SentimentCache implements domain.SentimentCache in memory.
type SentimentCache struct {
	mu   sync.RWMutex
	byID map[string]domain.SentimentRecord
}

// NewSentimentCache returns an empty SentimentCache.
func NewSentimentCache() *SentimentCache {
	return &SentimentCache{byID: make(map[string]domain.SentimentRecord)}
}

// SetSentiment stores the rolling sentiment for its symbol.
func (c *SentimentCache) SetSentiment(_ context.Context, rec domain.SentimentRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[rec.Symbol] = rec
	return nil
}

// GetSentiment returns the rolling sentiment for symbol.
func (c *SentimentCache) GetSentiment(_ context.Context, symbol string) (domain.SentimentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byID[symbol]
	if !ok {
		return domain.SentimentRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// ListSentiment returns records for the given symbols, omitting misses.
func (c *SentimentCache) ListSentiment(_ context.Context, symbols []string) ([]domain.SentimentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.SentimentRecord, 0, len(symbols))
	for _, sym := range symbols {
		if rec, ok := c.byID[sym]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// LockManager implements domain.LockManager with process-local locks.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock domain.Clock
}

// NewLockManager returns a LockManager using the given clock for TTL expiry.
func NewLockManager(clock domain.Clock) *LockManager {
	return &LockManager{held: make(map[string]time.Time), clock: clock}
}

// Acquire takes the named lock, failing with domain.ErrLockHeld when another
// holder has it and its TTL has not lapsed.
func (l *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = now.Add(ttl)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

var (
	_ domain.SnapshotCache  = (*SnapshotCache)(nil)
	_ domain.SentimentCache = (*SentimentCache)(nil)
	_ domain.LockManager    = (*LockManager)(nil)
)
