package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COUNCIL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COUNCIL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COUNCIL_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "COUNCIL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COUNCIL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COUNCIL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COUNCIL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COUNCIL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COUNCIL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COUNCIL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COUNCIL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COUNCIL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COUNCIL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COUNCIL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COUNCIL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COUNCIL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COUNCIL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COUNCIL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "COUNCIL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "COUNCIL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COUNCIL_S3_REGION")
	setStr(&cfg.S3.Bucket, "COUNCIL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COUNCIL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COUNCIL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COUNCIL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COUNCIL_S3_FORCE_PATH_STYLE")

	// ── Market ──
	setStr(&cfg.Market.CoinGeckoURL, "COUNCIL_MARKET_COINGECKO_URL")
	setStr(&cfg.Market.CoinGeckoAPIKey, "COUNCIL_MARKET_COINGECKO_API_KEY")
	setStr(&cfg.Market.CoinGeckoAPIKey, "COINGECKO_API_KEY") // compatibility alias

	// ── Council ──
	setStringSlice(&cfg.Council.Watchlist, "COUNCIL_WATCHLIST")
	setStr(&cfg.Council.Timeframe, "COUNCIL_TIMEFRAME")
	setDuration(&cfg.Council.EvalInterval, "COUNCIL_EVAL_INTERVAL")
	setDuration(&cfg.Council.AgentTimeout, "COUNCIL_AGENT_TIMEOUT")
	setDuration(&cfg.Council.SweepInterval, "COUNCIL_SWEEP_INTERVAL")
	setStr(&cfg.Council.SnapshotCron, "COUNCIL_SNAPSHOT_CRON")
	setFloat64(&cfg.Council.DefaultCapital, "COUNCIL_DEFAULT_CAPITAL")

	// ── Social ──
	setBool(&cfg.Social.Enabled, "COUNCIL_SOCIAL_ENABLED")
	setDuration(&cfg.Social.Interval, "COUNCIL_SOCIAL_INTERVAL")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "COUNCIL_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "COUNCIL_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "COUNCIL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "COUNCIL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COUNCIL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "COUNCIL_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "COUNCIL_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateLimitSecs, "COUNCIL_SERVER_RATE_LIMIT_SECS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COUNCIL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COUNCIL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COUNCIL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COUNCIL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COUNCIL_MODE")
	setStr(&cfg.LogLevel, "COUNCIL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
