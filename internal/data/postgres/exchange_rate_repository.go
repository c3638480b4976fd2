package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// ExchangeRateRepository keeps the append-only rate history
type ExchangeRateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewExchangeRateRepository(logger *slog.Logger, db *persistence.PostgresDB) exchange.Repository {
	return &ExchangeRateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ExchangeRateRepository) Create(ctx context.Context, rate *exchange.Rate) error {
	query := `
		INSERT INTO exchange_rates (base_currency, quote_currency, rate, set_by_id, set_by_name, effective_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		rate.Base,
		rate.Quote,
		rate.Rate,
		rate.SetBy.EmployeeID,
		rate.SetBy.EmployeeName,
		rate.EffectiveAt,
	).Scan(&rate.ID)
	if err != nil {
		r.logger.Error("Failed to store exchange rate",
			"base", string(rate.Base),
			"quote", string(rate.Quote),
			"rate", rate.Rate.String(),
			"error", err,
		)
		return fmt.Errorf("failed to store exchange rate: %w", err)
	}

	return nil
}

// Latest returns the most recent rate for the pair or exchange.ErrRateNotSet
func (r *ExchangeRateRepository) Latest(ctx context.Context, base, quote voucher.Currency) (*exchange.Rate, error) {
	query := `
		SELECT id, base_currency, quote_currency, rate, set_by_id, set_by_name, effective_at
		FROM exchange_rates
		WHERE base_currency = $1 AND quote_currency = $2
		ORDER BY effective_at DESC, id DESC
		LIMIT 1
	`

	var rate exchange.Rate
	err := r.querier.QueryRow(ctx, query, base, quote).Scan(
		&rate.ID,
		&rate.Base,
		&rate.Quote,
		&rate.Rate,
		&rate.SetBy.EmployeeID,
		&rate.SetBy.EmployeeName,
		&rate.EffectiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, exchange.ErrRateNotSet
		}
		r.logger.Error("Failed to read exchange rate", "base", string(base), "quote", string(quote), "error", err)
		return nil, fmt.Errorf("failed to read exchange rate: %w", err)
	}

	return &rate, nil
}
