package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/lexis-api/internal/config"
	"github.com/phrazzld/lexis-api/internal/platform/postgres"
	"github.com/phrazzld/lexis-api/internal/platform/redis"
	"github.com/phrazzld/lexis-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// setupAppDatabase opens the connection pool and verifies it with a ping.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.Int("max_open_conns", cfg.Database.MaxOpenConns))
	return db, nil
}

// setupStore builds the PostgreSQL store and, when redis.url is set, wraps
// its translations in the Redis cache. The returned client is nil when
// caching is disabled.
func setupStore(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	logger *slog.Logger,
) (store.Store, *goredis.Client, error) {
	var st store.Store = postgres.NewStore(db, logger)
	if cfg.Redis.URL == "" {
		logger.Info("translation cache disabled")
		return st, nil, nil
	}

	timeout := time.Duration(cfg.Redis.OperationTimeout) * time.Millisecond
	client, err := redis.NewClient(ctx, cfg.Redis.URL, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.Redis.TranslationTTL) * time.Minute
	logger.Info("translation cache enabled", slog.Duration("ttl", ttl))
	return redis.WrapStore(st, client, ttl, timeout, logger), client, nil
}
