package statement

import (
	"context"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// Repository manages the statement projection with pagination support
type Repository interface {
	// Upsert is idempotent per voucher id so redelivered events are harmless
	Upsert(ctx context.Context, entry *Entry) error
	GetByVoucherID(ctx context.Context, voucherID uuid.UUID) (*Entry, error)
	ListBySafe(ctx context.Context, safeID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountBySafe(ctx context.Context, safeID uuid.UUID) (int64, error)
	FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error)
}

// ErrEntryNotFound indicates a voucher that has not been projected yet
type ErrEntryNotFound struct {
	VoucherID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "statement entry not found: " + e.VoucherID.String()
}

func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.VoucherID == uuid.Nil {
		return true
	}
	return e.VoucherID == t.VoucherID
}
