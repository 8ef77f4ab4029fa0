package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path over Defaults, then applies AUCTION_*
// environment overrides. A missing file is not an error. The result is not
// validated; callers should run Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose AUCTION_* variable is set.
// Values that fail to parse leave the field unchanged and are reported by Validate.
func applyEnvOverrides(cfg *Config) {
	env := &envReader{}
	env.setInt(&cfg.Server.Port, "PORT") // platform convention
	env.setInt(&cfg.Server.Port, "AUCTION_SERVER_PORT")

	env.setStr(&cfg.Storage.Driver, "AUCTION_STORAGE_DRIVER")
	env.setStr(&cfg.Storage.Postgres.DSN, "DATABASE_URL")
	env.setStr(&cfg.Storage.Postgres.DSN, "AUCTION_POSTGRES_DSN")
	env.setStr(&cfg.Storage.Postgres.Host, "AUCTION_POSTGRES_HOST")
	env.setInt(&cfg.Storage.Postgres.Port, "AUCTION_POSTGRES_PORT")
	env.setStr(&cfg.Storage.Postgres.Database, "AUCTION_POSTGRES_DATABASE")
	env.setStr(&cfg.Storage.Postgres.User, "AUCTION_POSTGRES_USER")
	env.setStr(&cfg.Storage.Postgres.Password, "AUCTION_POSTGRES_PASSWORD")
	env.setStr(&cfg.Storage.Postgres.SSLMode, "AUCTION_POSTGRES_SSL_MODE")
	env.setInt(&cfg.Storage.Postgres.PoolMaxConns, "AUCTION_POSTGRES_POOL_MAX_CONNS")
	env.setInt(&cfg.Storage.Postgres.PoolMinConns, "AUCTION_POSTGRES_POOL_MIN_CONNS")
	env.setBool(&cfg.Storage.Postgres.RunMigrations, "AUCTION_POSTGRES_RUN_MIGRATIONS")

	env.setStr(&cfg.Settlement.Driver, "AUCTION_SETTLEMENT_DRIVER")
	env.setStr(&cfg.Settlement.Redis.Addr, "AUCTION_REDIS_ADDR")
	env.setStr(&cfg.Settlement.Redis.Password, "AUCTION_REDIS_PASSWORD")
	env.setInt(&cfg.Settlement.Redis.DB, "AUCTION_REDIS_DB")
	env.setInt(&cfg.Settlement.Redis.PoolSize, "AUCTION_REDIS_POOL_SIZE")
	env.setBool(&cfg.Settlement.Redis.TLSEnabled, "AUCTION_REDIS_TLS_ENABLED")
	env.setStr(&cfg.Settlement.Redis.KeyPrefix, "AUCTION_REDIS_KEY_PREFIX")

	env.setStr(&cfg.Events.Driver, "AUCTION_EVENTS_DRIVER")
	env.setStr(&cfg.Events.RabbitMQ.URL, "AUCTION_RABBITMQ_URL")
	env.setStr(&cfg.Events.RabbitMQ.Exchange, "AUCTION_RABBITMQ_EXCHANGE")

	env.setInt64(&cfg.Reputation.WithdrawalPenalty, "AUCTION_WITHDRAWAL_PENALTY")

	env.setStr(&cfg.LogLevel, "AUCTION_LOG_LEVEL")
	env.setBool(&cfg.SeedDemo, "AUCTION_SEED_DEMO")

	cfg.envErrs = env.errs
}

// envReader collects parse failures instead of stopping at the first one
type envReader struct {
	errs []string
}

func (r *envReader) invalid(key, v, kind string) {
	r.errs = append(r.errs, fmt.Sprintf("env: %s=%q is not a valid %s", key, v, kind))
}

func (r *envReader) setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (r *envReader) setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.invalid(key, v, "integer")
			return
		}
		*dst = n
	}
}

func (r *envReader) setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.invalid(key, v, "integer")
			return
		}
		*dst = n
	}
}

func (r *envReader) setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.invalid(key, v, "boolean")
			return
		}
		*dst = b
	}
}
