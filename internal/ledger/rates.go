package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// RateService serves the live USD to IQD rate from the cache, falling back to the history
type RateService struct {
	history exchange.Repository
	cache   exchange.Cache
	logger  *slog.Logger
}

var _ exchange.RateProvider = (*RateService)(nil)

func NewRateService(logger *slog.Logger, history exchange.Repository, cache exchange.Cache) *RateService {
	return &RateService{
		history: history,
		cache:   cache,
		logger:  logger,
	}
}

// CurrentRate never fails because of the cache alone
func (s *RateService) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	rate, ok, err := s.cache.Get(ctx, voucher.CurrencyUSD, voucher.BaseCurrency)
	if err != nil {
		s.logger.Warn("Exchange rate cache unavailable, reading history", "error", err)
	}
	if ok {
		return rate, nil
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.cache.Set(ctx, voucher.CurrencyUSD, voucher.BaseCurrency, latest.Rate); err != nil {
		s.logger.Warn("Failed to warm exchange rate cache", "error", err)
	}
	return latest.Rate, nil
}

// Latest returns the most recent history entry
func (s *RateService) Latest(ctx context.Context) (*exchange.Rate, error) {
	latest, err := s.history.Latest(ctx, voucher.CurrencyUSD, voucher.BaseCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	return latest, nil
}

// SetRate appends a new rate. Vouchers already recorded keep their frozen rate.
func (s *RateService) SetRate(ctx context.Context, rate decimal.Decimal, actor shared.Actor) (*exchange.Rate, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", voucher.ErrInvalidExchangeRate, rate.String())
	}
	if err := voucher.CheckPlaces("rate", rate, voucher.RatePlaces); err != nil {
		return nil, err
	}
	if err := actor.Validate(); err != nil {
		return nil, voucher.ValidationFailed{Field: "set_by", Reason: err.Error()}
	}

	entry := &exchange.Rate{
		Base:        voucher.CurrencyUSD,
		Quote:       voucher.BaseCurrency,
		Rate:        rate,
		SetBy:       actor,
		EffectiveAt: time.Now().UTC(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record exchange rate: %w", err)
	}

	if err := s.cache.Set(ctx, entry.Base, entry.Quote, entry.Rate); err != nil {
		s.logger.Warn("Failed to refresh exchange rate cache", "error", err)
	}

	s.logger.Info("Exchange rate updated",
		"rate", rate.String(),
		"set_by", actor.EmployeeID,
	)
	return entry, nil
}
