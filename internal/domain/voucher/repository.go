package voucher

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ReceiptFilter selects receipt vouchers for a party. PartyID wins over PartyName.
type ReceiptFilter struct {
	PartyID   *uuid.UUID
	PartyName string
}

// SafeBalance is the derived position of a safe in one currency
type SafeBalance struct {
	Currency Currency        `json:"currency"`
	In       decimal.Decimal `json:"in"`
	Out      decimal.Decimal `json:"out"`
	Balance  decimal.Decimal `json:"balance"`
}

// Repository defines voucher persistence. Vouchers are never updated except for linking.
type Repository interface {
	Create(ctx context.Context, v *Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*Voucher, error)

	// SetLinked patches the paired leg id on a transfer leg
	SetLinked(ctx context.Context, id, linkedID uuid.UUID) error

	// FindReceipts returns receipt-kind vouchers newest first
	FindReceipts(ctx context.Context, filter ReceiptFilter) ([]*Voucher, error)
	SafeBalances(ctx context.Context, safeID uuid.UUID) ([]SafeBalance, error)
	WithTx(tx pgx.Tx) Repository
}

// CounterRepository exposes the atomic number counters
type CounterRepository interface {
	// Increment bumps the series and returns the new value, creating the row on first use
	Increment(ctx context.Context, series string) (int64, error)
	Current(ctx context.Context, series string) (int64, error)
	SetLockTimeout(ctx context.Context, timeoutMillis int64) error
	WithTx(tx pgx.Tx) CounterRepository
}
