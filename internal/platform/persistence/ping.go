package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	pingInitialInterval = 200 * time.Millisecond
	defaultPingBudget   = 10 * time.Second
)

// pingWithRetry keeps pinging a store until it answers or budget is spent. The
// gateway and the projector may start before their stores accept connections.
func pingWithRetry(ctx context.Context, logger *slog.Logger, store string, budget time.Duration, ping func(context.Context) error) error {
	// a zero MaxElapsedTime would retry forever
	if budget <= 0 {
		budget = defaultPingBudget
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pingInitialInterval
	b.MaxElapsedTime = budget

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()
		return ping(attemptCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Store not reachable yet", "store", store, "retry_in", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to ping %s: %w", store, err)
	}
	return nil
}
