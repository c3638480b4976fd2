package persistence

import (
	"context"
	"log/slog"

	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the exchange-rate cache and waits until it answers
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	err := pingWithRetry(ctx, logger, "redis", cfg.DialTimeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
