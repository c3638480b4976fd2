package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

var ErrRateNotSet = errors.New("no exchange rate has been set")

// Rate is one entry of the institutional rate history, in quote units per base unit
type Rate struct {
	ID          int64            `json:"id"`
	Base        voucher.Currency `json:"base"`
	Quote       voucher.Currency `json:"quote"`
	Rate        decimal.Decimal  `json:"rate"`
	SetBy       shared.Actor     `json:"set_by"`
	EffectiveAt time.Time        `json:"effective_at"`
}

// Repository stores the append-only rate history
type Repository interface {
	Create(ctx context.Context, rate *Rate) error
	Latest(ctx context.Context, base, quote voucher.Currency) (*Rate, error)
}

// Cache holds the latest rate for fast reads
type Cache interface {
	Get(ctx context.Context, base, quote voucher.Currency) (decimal.Decimal, bool, error)
	Set(ctx context.Context, base, quote voucher.Currency, rate decimal.Decimal) error
}

// RateProvider returns the live IQD per USD rate
type RateProvider interface {
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
}
