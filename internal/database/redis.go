package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/logger"
)

// InitRedis returns a connected client, or nil when Redis is unreachable.
// Callers treat a nil client as "no cache, no token blacklist".
func InitRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	log := logger.WithComponent("redis")
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr()).Msg("redis connection failed, continuing without redis")
		rdb.Close()
		return nil
	}

	log.Info().Str("addr", cfg.Addr()).Msg("redis connection established")
	return rdb
}
