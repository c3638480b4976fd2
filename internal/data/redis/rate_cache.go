// Package redis caches the live exchange rate in front of the Postgres rate history.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "exchange_rate"

// RateCache implements exchange.Cache on Redis string keys
type RateCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRateCache(logger *slog.Logger, client goredis.Cmdable, ttl time.Duration) *RateCache {
	return &RateCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func rateKey(base, quote voucher.Currency) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, base, quote)
}

// Get reports false on a miss
func (c *RateCache) Get(ctx context.Context, base, quote voucher.Currency) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, rateKey(base, quote)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return decimal.Zero, false, nil
		}
		c.logger.Warn("Failed to read cached exchange rate", "base", string(base), "quote", string(quote), "error", err)
		return decimal.Zero, false, fmt.Errorf("failed to read cached exchange rate: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		c.logger.Warn("Discarding malformed cached exchange rate", "value", raw, "error", err)
		return decimal.Zero, false, nil
	}

	return rate, true, nil
}

func (c *RateCache) Set(ctx context.Context, base, quote voucher.Currency, rate decimal.Decimal) error {
	if err := c.client.Set(ctx, rateKey(base, quote), rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache exchange rate", "base", string(base), "quote", string(quote), "error", err)
		return fmt.Errorf("failed to cache exchange rate: %w", err)
	}
	return nil
}
