package ledger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// ReceiptFinder is the voucher source reconciliation reads from
type ReceiptFinder interface {
	FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error)
}

// ReconcileQuery selects a party and optionally a course and its fee
type ReconcileQuery struct {
	PartyID       *uuid.UUID
	PartyName     string
	CourseID      *uuid.UUID
	CourseFee     *decimal.Decimal
	Currency      voucher.Currency
	ConvertToBase bool
}

// Balance is what a party has paid against a fee. MatchedByName marks the degraded
// path where receipts were matched on the party name text.
type Balance struct {
	PartyID         *uuid.UUID                           `json:"party_id,omitempty"`
	PartyName       string                               `json:"party_name,omitempty"`
	CourseID        *uuid.UUID                           `json:"course_id,omitempty"`
	Currency        voucher.Currency                     `json:"currency"`
	Fee             *decimal.Decimal                     `json:"fee,omitempty"`
	Paid            decimal.Decimal                      `json:"paid"`
	Remaining       *decimal.Decimal                     `json:"remaining,omitempty"`
	PaidByCurrency  map[voucher.Currency]decimal.Decimal `json:"paid_by_currency"`
	ConvertedToBase bool                                 `json:"converted_to_base"`
	MatchedByName   bool                                 `json:"matched_by_name"`
	Vouchers        []*voucher.Voucher                   `json:"vouchers"`
}

// Reader reconstructs party balances from receipts. It never writes.
type Reader struct {
	receipts  ReceiptFinder
	directory directory.Directory
	logger    *slog.Logger
}

func NewReader(logger *slog.Logger, receipts ReceiptFinder, dir directory.Directory) *Reader {
	return &Reader{
		receipts:  receipts,
		directory: dir,
		logger:    logger,
	}
}

// BalanceFor sums the party's receipts in the target currency. Receipts in other
// currencies are reported per currency and only folded in when converting to base.
func (r *Reader) BalanceFor(ctx context.Context, q ReconcileQuery) (*Balance, error) {
	name := strings.TrimSpace(q.PartyName)
	if q.PartyID == nil && name == "" {
		return nil, voucher.ValidationFailed{Field: "party", Reason: "party id or party name is required"}
	}
	if q.Currency != "" && !q.Currency.Valid() {
		return nil, voucher.ValidationFailed{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", q.Currency)}
	}
	if q.CourseFee != nil && q.CourseFee.IsNegative() {
		return nil, voucher.ValidationFailed{Field: "course_fee", Reason: "fee cannot be negative"}
	}

	fee, feeCurrency, err := r.resolveFee(ctx, q)
	if err != nil {
		return nil, err
	}

	target := q.Currency
	if target == "" {
		target = feeCurrency
	}
	if target == "" {
		target = voucher.BaseCurrency
	}
	if q.ConvertToBase && target != voucher.BaseCurrency {
		return nil, voucher.ValidationFailed{Field: "convert", Reason: "conversion is only into " + string(voucher.BaseCurrency)}
	}
	if fee != nil && feeCurrency != "" && feeCurrency != target {
		return nil, voucher.ValidationFailed{Field: "currency", Reason: fmt.Sprintf("course fee is in %s", feeCurrency)}
	}

	filter := voucher.ReceiptFilter{PartyID: q.PartyID, PartyName: name}
	found, err := r.receipts.FindReceipts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}

	balance := &Balance{
		PartyID:         q.PartyID,
		PartyName:       name,
		CourseID:        q.CourseID,
		Currency:        target,
		Fee:             fee,
		Paid:            decimal.Zero,
		PaidByCurrency:  map[voucher.Currency]decimal.Decimal{},
		ConvertedToBase: q.ConvertToBase,
		MatchedByName:   q.PartyID == nil,
		Vouchers:        []*voucher.Voucher{},
	}
	if balance.MatchedByName {
		r.logger.Warn("Reconciling by party name", "party_name", name)
	}

	for _, v := range found {
		if !v.Kind.IsReceipt() {
			continue
		}
		amount := v.Amount
		if q.CourseID != nil {
			amount = v.AllocatedTo(*q.CourseID)
			if amount.IsZero() {
				continue
			}
		}

		balance.PaidByCurrency[v.Currency] = balance.PaidByCurrency[v.Currency].Add(amount)
		switch {
		case v.Currency == target:
			balance.Paid = balance.Paid.Add(amount)
		case q.ConvertToBase:
			balance.Paid = balance.Paid.Add(amount.Mul(v.ExchangeRate))
		}
		balance.Vouchers = append(balance.Vouchers, v)
	}

	slices.SortStableFunc(balance.Vouchers, func(a, b *voucher.Voucher) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Number, a.Number)
	})

	if fee != nil {
		remaining := decimal.Max(decimal.Zero, fee.Sub(balance.Paid))
		balance.Remaining = &remaining
	}

	return balance, nil
}

// resolveFee prefers a caller supplied fee, then the party's enrollment for the course
func (r *Reader) resolveFee(ctx context.Context, q ReconcileQuery) (*decimal.Decimal, voucher.Currency, error) {
	if q.CourseFee != nil {
		fee := *q.CourseFee
		return &fee, "", nil
	}
	if q.CourseID == nil || q.PartyID == nil || r.directory == nil {
		return nil, "", nil
	}

	party, err := r.directory.GetParty(ctx, *q.PartyID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load party: %w", err)
	}
	enrollment, ok := party.Enrollment(*q.CourseID)
	if !ok {
		return nil, "", voucher.ValidationFailed{Field: "course_id", Reason: "party is not enrolled in the course"}
	}
	fee := enrollment.CourseFee
	return &fee, enrollment.Currency, nil
}
