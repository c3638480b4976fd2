// Package ledger records vouchers: it numbers them, freezes their exchange rate,
// persists them atomically, pairs transfer legs and reconciles what a party has paid.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// GlobalSeries is the single number series used under global numbering
const GlobalSeries = "voucher"

// Postgres error codes that mean another writer holds the counter row
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Assigned is a number handed out by the allocator
type Assigned struct {
	Series string
	Number int64
}

// Allocator hands out voucher numbers from the counter table inside the caller's transaction
type Allocator struct {
	counters    voucher.CounterRepository
	scope       string
	lockTimeout time.Duration
	logger      *slog.Logger
}

func NewAllocator(logger *slog.Logger, counters voucher.CounterRepository, cfg *config.LedgerConfig) *Allocator {
	return &Allocator{
		counters:    counters,
		scope:       cfg.NumberingScope,
		lockTimeout: cfg.CounterLockTimeout,
		logger:      logger,
	}
}

// Series returns the number series a kind draws from
func (a *Allocator) Series(kind voucher.Kind) string {
	if a.scope == config.NumberingScopePerKind {
		return kind.Family()
	}
	return GlobalSeries
}

// Next increments the series counter within tx. The row lock is released when tx ends,
// so a rolled back voucher leaves a gap rather than a duplicate.
func (a *Allocator) Next(ctx context.Context, tx pgx.Tx, kind voucher.Kind) (Assigned, error) {
	counters := a.counters
	if tx != nil {
		counters = counters.WithTx(tx)
	}
	series := a.Series(kind)

	if a.lockTimeout > 0 {
		if err := counters.SetLockTimeout(ctx, a.lockTimeout.Milliseconds()); err != nil {
			return Assigned{}, classifyCounterError(err)
		}
	}

	n, err := counters.Increment(ctx, series)
	if err != nil {
		return Assigned{}, classifyCounterError(err)
	}

	a.logger.Debug("Allocated voucher number", "series", series, "number", n)
	return Assigned{Series: series, Number: n}, nil
}

// Peek returns the number the next voucher would likely get. Nothing is reserved.
func (a *Allocator) Peek(ctx context.Context, kind voucher.Kind) (int64, error) {
	current, err := a.counters.Current(ctx, a.Series(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to peek voucher number: %w", err)
	}
	return current + 1, nil
}

// IsContention reports whether err is a lock or serialization conflict
func IsContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}

func classifyCounterError(err error) error {
	if IsContention(err) {
		return fmt.Errorf("%w: %v", voucher.ErrNumberContention, err)
	}
	return fmt.Errorf("failed to allocate voucher number: %w", err)
}
