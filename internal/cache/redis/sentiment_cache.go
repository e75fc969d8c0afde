package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SentimentCache implements domain.SentimentCache using Redis hashes.
// Each symbol's rolling sentiment is stored at key "sentiment:{symbol}"
// with one field per record attribute, so the social monitor can update
// the record without a read-modify-write cycle.
type SentimentCache struct {
	rdb *redis.Client
}

// NewSentimentCache creates a SentimentCache backed by the given Client.
func NewSentimentCache(c *Client) *SentimentCache {
	return &SentimentCache{rdb: c.Underlying()}
}

func sentimentKey(symbol string) string {
	return "sentiment:" + strings.ToUpper(symbol)
}

// SetSentiment stores the rolling sentiment record for a symbol.
func (sc *SentimentCache) SetSentiment(ctx context.Context, rec domain.SentimentRecord) error {
	key := sentimentKey(rec.Symbol)
	fields := map[string]interface{}{
		"score":       strconv.FormatFloat(rec.Score, 'f', -1, 64),
		"mentions":    strconv.Itoa(rec.Mentions),
		"influencers": strconv.Itoa(rec.Influencers),
		"market_cap":  strconv.FormatFloat(rec.MarketCap, 'f', -1, 64),
		"updated_at":  strconv.FormatInt(rec.UpdatedAt.UnixNano(), 10),
	}
	if err := sc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set sentiment %s: %w", rec.Symbol, err)
	}
	return nil
}

// GetSentiment retrieves the sentiment record for a symbol.
// It returns domain.ErrNotFound when the key does not exist.
func (sc *SentimentCache) GetSentiment(ctx context.Context, symbol string) (domain.SentimentRecord, error) {
	vals, err := sc.rdb.HGetAll(ctx, sentimentKey(symbol)).Result()
	if err != nil {
		return domain.SentimentRecord{}, fmt.Errorf("redis: get sentiment %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.SentimentRecord{}, domain.ErrNotFound
	}
	return parseSentiment(symbol, vals)
}

// ListSentiment retrieves sentiment records for multiple symbols using a
// pipeline. Symbols with no cached record are silently omitted.
func (sc *SentimentCache) ListSentiment(ctx context.Context, symbols []string) ([]domain.SentimentRecord, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	pipe := sc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(symbols))
	for _, sym := range symbols {
		cmds[sym] = pipe.HGetAll(ctx, sentimentKey(sym))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: list sentiment pipeline: %w", err)
	}

	records := make([]domain.SentimentRecord, 0, len(symbols))
	for _, sym := range symbols {
		vals, err := cmds[sym].Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		rec, err := parseSentiment(sym, vals)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseSentiment(symbol string, vals map[string]string) (domain.SentimentRecord, error) {
	rec := domain.SentimentRecord{Symbol: strings.ToUpper(symbol)}

	score, err := strconv.ParseFloat(vals["score"], 64)
	if err != nil {
		return domain.SentimentRecord{}, fmt.Errorf("redis: parse sentiment score %s: %w", symbol, err)
	}
	rec.Score = score

	if v, ok := vals["mentions"]; ok {
		rec.Mentions, _ = strconv.Atoi(v)
	}
	if v, ok := vals["influencers"]; ok {
		rec.Influencers, _ = strconv.Atoi(v)
	}
	if v, ok := vals["market_cap"]; ok {
		rec.MarketCap, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["updated_at"]; ok {
		if nanos, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			rec.UpdatedAt = time.Unix(0, nanos)
		}
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.SentimentCache = (*SentimentCache)(nil)
