package ledger

import (
	"context"
	"fmt"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// CurrencyResolver freezes the rate a voucher is recorded at
type CurrencyResolver struct {
	rates exchange.RateProvider
}

func NewCurrencyResolver(rates exchange.RateProvider) *CurrencyResolver {
	return &CurrencyResolver{rates: rates}
}

// Resolve returns 1 for the base currency. Foreign currencies use fixed when given,
// otherwise the live rate. The provider is asked at most once.
func (r *CurrencyResolver) Resolve(ctx context.Context, currency voucher.Currency, fixed *decimal.Decimal) (decimal.Decimal, error) {
	if currency == voucher.BaseCurrency {
		return one, nil
	}
	if !currency.Valid() {
		return decimal.Zero, voucher.ValidationFailed{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", currency)}
	}

	var rate decimal.Decimal
	if fixed != nil {
		rate = *fixed
	} else {
		live, err := r.rates.CurrentRate(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to resolve exchange rate: %w", err)
		}
		rate = live
	}

	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", voucher.ErrInvalidExchangeRate, rate.String())
	}
	if err := voucher.CheckPlaces("exchange_rate", rate, voucher.RatePlaces); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}
