package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CounterRepository implements voucher.CounterRepository on the voucher_counters table
type CounterRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCounterRepository(logger *slog.Logger, db *persistence.PostgresDB) voucher.CounterRepository {
	return &CounterRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CounterRepository) WithTx(tx pgx.Tx) voucher.CounterRepository {
	return &CounterRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Increment is a single-statement read-modify-write. The row lock it takes is held
// until the surrounding transaction ends.
func (r *CounterRepository) Increment(ctx context.Context, series string) (int64, error) {
	query := `
		INSERT INTO voucher_counters (series, value)
		VALUES ($1, 1)
		ON CONFLICT (series) DO UPDATE SET value = voucher_counters.value + 1, updated_at = now()
		RETURNING value
	`

	var value int64
	if err := r.querier.QueryRow(ctx, query, series).Scan(&value); err != nil {
		r.logger.Warn("Failed to increment voucher counter", "series", series, "error", err)
		return 0, fmt.Errorf("failed to increment voucher counter %s: %w", series, err)
	}

	return value, nil
}

// Current reads the last issued number without locking; zero when the series is unused
func (r *CounterRepository) Current(ctx context.Context, series string) (int64, error) {
	query := `SELECT value FROM voucher_counters WHERE series = $1`

	var value int64
	err := r.querier.QueryRow(ctx, query, series).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error("Failed to read voucher counter", "series", series, "error", err)
		return 0, fmt.Errorf("failed to read voucher counter %s: %w", series, err)
	}

	return value, nil
}

// SetLockTimeout bounds lock waits for the rest of the current transaction
func (r *CounterRepository) SetLockTimeout(ctx context.Context, timeoutMillis int64) error {
	query := `SELECT set_config('lock_timeout', $1, true)`

	if _, err := r.querier.Exec(ctx, query, fmt.Sprintf("%dms", timeoutMillis)); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}
