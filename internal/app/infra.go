package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/mollybeach/secure-user-api/internal/config"
	"github.com/mollybeach/secure-user-api/internal/db"
	"github.com/mollybeach/secure-user-api/internal/logger"
	"github.com/mollybeach/secure-user-api/internal/redis"
)

type Infra struct {
	DB *sql.DB

	// Redis is nil when not configured; the service then runs without a
	// token denylist.
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	infra := &Infra{DB: sqlDB}

	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Redis = redisClient
		logger.Info("redis ready", nil)
	} else {
		logger.Warn("redis not configured, token denylist disabled", nil)
	}

	return infra, nil
}
