package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/tradecouncil/internal/blob/s3"
	"github.com/alanyoungcy/tradecouncil/internal/cache/redis"
	"github.com/alanyoungcy/tradecouncil/internal/config"
	"github.com/alanyoungcy/tradecouncil/internal/domain"
	"github.com/alanyoungcy/tradecouncil/internal/notify"
	"github.com/alanyoungcy/tradecouncil/internal/platform/coingecko"
	"github.com/alanyoungcy/tradecouncil/internal/store/memory"
	"github.com/alanyoungcy/tradecouncil/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	PredictionStore  domain.PredictionStore
	PerformanceStore domain.PerformanceStore
	PortfolioStore   domain.PortfolioStore
	AuditStore       domain.AuditStore

	// Caches and messaging
	SnapshotCache  domain.SnapshotCache
	SentimentCache domain.SentimentCache
	RateLimiter    domain.RateLimiter
	LockManager    domain.LockManager
	SignalBus      domain.SignalBus

	// Market data
	MarketSource domain.MarketDataSource

	// Blob storage (nil unless the archive is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. Standalone mode swaps the
// Postgres, Redis, and S3 backends for in-memory equivalents so the council
// can run with no external services.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		MarketSource: coingecko.New(cfg.Market.CoinGeckoURL, cfg.Market.CoinGeckoAPIKey),
	}

	if strings.ToLower(cfg.Mode) == "standalone" {
		wireMemory(deps)
	} else {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PredictionStore = postgres.NewPredictionStore(pool)
		deps.PerformanceStore = postgres.NewPerformanceStore(pool)
		deps.PortfolioStore = postgres.NewPortfolioStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SnapshotCache = redis.NewSnapshotCache(redisClient)
		deps.SentimentCache = redis.NewSentimentCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

		// --- S3 blob storage (optional cold-storage archive) ---
		if cfg.S3.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			closers = append(closers, func() { _ = s3Client.Close() })

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.BlobReader = s3blob.NewReader(s3Client)
			deps.Archiver = s3blob.NewArchiver(
				deps.BlobWriter,
				postgres.NewPredictionStore(pool),
				deps.AuditStore,
			)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireMemory populates deps with in-memory store, cache, and bus
// implementations. Audit logging and the archive are skipped; there is
// nothing durable to write them to.
func wireMemory(deps *Dependencies) {
	clock := domain.SystemClock{}
	deps.PredictionStore = memory.NewPredictionStore()
	deps.PerformanceStore = memory.NewPerformanceStore()
	deps.PortfolioStore = memory.NewPortfolioStore()
	deps.SnapshotCache = memory.NewSnapshotCache()
	deps.SentimentCache = memory.NewSentimentCache()
	deps.LockManager = memory.NewLockManager(clock)
	deps.SignalBus = memory.NewBus()
}
