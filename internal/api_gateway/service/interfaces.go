package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// VoucherService defines voucher recording and lookup
type VoucherService interface {
	// CreateVoucher fills safe and party names from the directory and records the draft
	CreateVoucher(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error)

	// CreateVouchers records each draft independently; results keep submission order
	CreateVouchers(ctx context.Context, drafts []voucher.Draft) []ledger.BatchResult

	// GetVoucher returns voucher.ErrVoucherNotFound when id is unknown
	GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error)

	// NextNumber is advisory; the number actually assigned may differ
	NextNumber(ctx context.Context, kind voucher.Kind) (int64, error)
}

// TransferCommand names the safes by id; the service resolves them
type TransferCommand struct {
	FromSafeID uuid.UUID
	ToSafeID   uuid.UUID
	Amount     decimal.Decimal
	Currency   voucher.Currency
	Memo       string
	Actor      shared.Actor
}

// TransferService defines safe to safe transfers
type TransferService interface {
	// CreateTransfer returns both legs, or voucher.TransferPartiallyApplied naming the orphan
	CreateTransfer(ctx context.Context, cmd TransferCommand) (*voucher.Voucher, *voucher.Voucher, error)
}

// SafeBalance is the derived per-currency position of one safe
type SafeBalance struct {
	SafeID   uuid.UUID             `json:"safe_id"`
	SafeName string                `json:"safe_name"`
	Balances []voucher.SafeBalance `json:"balances"`
}

// SafeService defines the derived safe views
type SafeService interface {
	Balance(ctx context.Context, safeID uuid.UUID) (*SafeBalance, error)

	// Statement returns one page of the projection and the total entry count
	Statement(ctx context.Context, safeID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error)
}

// ReconciliationService is implemented by ledger.Reader
type ReconciliationService interface {
	BalanceFor(ctx context.Context, q ledger.ReconcileQuery) (*ledger.Balance, error)
}

// ExchangeRateService is implemented by ledger.RateService
type ExchangeRateService interface {
	Latest(ctx context.Context) (*exchange.Rate, error)
	SetRate(ctx context.Context, rate decimal.Decimal, actor shared.Actor) (*exchange.Rate, error)
}

var (
	_ ReconciliationService = (*ledger.Reader)(nil)
	_ ExchangeRateService   = (*ledger.RateService)(nil)
)
