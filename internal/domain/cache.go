package domain

import (
	"context"
	"time"
)

// SnapshotCache caches the latest market snapshot per symbol.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap MarketSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (MarketSnapshot, error)
}

// SentimentCache caches the rolling social sentiment per symbol.
type SentimentCache interface {
	SetSentiment(ctx context.Context, rec SentimentRecord) error
	GetSentiment(ctx context.Context, symbol string) (SentimentRecord, error)
	ListSentiment(ctx context.Context, symbols []string) ([]SentimentRecord, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking, used to serialize resolution of a
// single prediction across concurrent sweepers.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub for live events and durable streams for replay.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
