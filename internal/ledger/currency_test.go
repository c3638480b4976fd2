package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyResolver_BaseCurrencyIsAlwaysOne(t *testing.T) {
	rates := &staticRates{rate: dec("1310")}
	resolver := NewCurrencyResolver(rates)

	fixed := dec("1500")
	for _, pinned := range []*decimal.Decimal{nil, &fixed} {
		rate, err := resolver.Resolve(context.Background(), voucher.CurrencyIQD, pinned)
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("1")))
	}
	assert.Zero(t, rates.calls, "the live rate is never read for the base currency")
}

func TestCurrencyResolver_Foreign(t *testing.T) {
	ctx := context.Background()

	t.Run("live rate read once", func(t *testing.T) {
		rates := &staticRates{rate: dec("1310")}
		rate, err := NewCurrencyResolver(rates).Resolve(ctx, voucher.CurrencyUSD, nil)
		require.NoError(t, err)
		assert.Equal(t, "1310", rate.String())
		assert.Equal(t, 1, rates.calls)
	})

	t.Run("fixed rate wins", func(t *testing.T) {
		rates := &staticRates{rate: dec("1310")}
		fixed := dec("1295.5")
		rate, err := NewCurrencyResolver(rates).Resolve(ctx, voucher.CurrencyUSD, &fixed)
		require.NoError(t, err)
		assert.Equal(t, "1295.5", rate.String())
		assert.Zero(t, rates.calls)
	})

	t.Run("rate finer than six places rejected", func(t *testing.T) {
		fixed := dec("1295.1234567")
		_, err := NewCurrencyResolver(&staticRates{}).Resolve(ctx, voucher.CurrencyUSD, &fixed)
		assert.ErrorIs(t, err, voucher.ValidationFailed{Field: "exchange_rate"})

		fixed = dec("1295.1234560")
		rate, err := NewCurrencyResolver(&staticRates{}).Resolve(ctx, voucher.CurrencyUSD, &fixed)
		require.NoError(t, err)
		assert.True(t, rate.Equal(dec("1295.123456")))
	})

	t.Run("non-positive rate rejected", func(t *testing.T) {
		rates := &staticRates{rate: dec("0")}
		_, err := NewCurrencyResolver(rates).Resolve(ctx, voucher.CurrencyUSD, nil)
		assert.ErrorIs(t, err, voucher.ErrInvalidExchangeRate)
	})

	t.Run("provider failure surfaces", func(t *testing.T) {
		rates := &staticRates{err: exchange.ErrRateNotSet}
		_, err := NewCurrencyResolver(rates).Resolve(ctx, voucher.CurrencyUSD, nil)
		assert.True(t, errors.Is(err, exchange.ErrRateNotSet))
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := NewCurrencyResolver(&staticRates{}).Resolve(ctx, "EUR", nil)
		assert.ErrorIs(t, err, voucher.ValidationFailed{Field: "currency"})
	})
}
