package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// CreateVoucherRequest represents a request to record a voucher.
// Ledger rules are enforced by the writer; binding only checks the shape.
type CreateVoucherRequest struct {
	Kind             string                `json:"kind" binding:"required"`
	Direction        string                `json:"direction,omitempty"`
	PartyName        string                `json:"party_name,omitempty"`
	PartyID          *uuid.UUID            `json:"party_id,omitempty"`
	PartyType        string                `json:"party_type,omitempty"`
	Amount           decimal.Decimal       `json:"amount"`
	Currency         string                `json:"currency" binding:"required"`
	SafeID           *uuid.UUID            `json:"safe_id,omitempty"`
	SafeName         string                `json:"safe_name,omitempty"`
	DistributionMode string                `json:"distribution_mode,omitempty"`
	Allocations      []voucher.Allocation  `json:"allocations,omitempty"`
	JournalLines     []voucher.JournalLine `json:"journal_lines,omitempty"`
	Details          string                `json:"details,omitempty"`
}

// toDraft normalizes the enum fields. Transfer legs are rejected here; they are
// only written in pairs by POST /transfers.
func (r CreateVoucherRequest) toDraft(actor shared.Actor) (voucher.Draft, error) {
	kind, err := voucher.ParseKind(r.Kind)
	if err != nil {
		return voucher.Draft{}, err
	}
	if err := voucher.RequireStandalone(kind); err != nil {
		return voucher.Draft{}, err
	}
	currency, err := voucher.ParseCurrency(r.Currency)
	if err != nil {
		return voucher.Draft{}, err
	}

	var partyType voucher.PartyType
	if strings.TrimSpace(r.PartyType) != "" {
		if partyType, err = voucher.ParsePartyType(r.PartyType); err != nil {
			return voucher.Draft{}, err
		}
	}

	return voucher.Draft{
		Kind:             kind,
		Direction:        voucher.Direction(strings.ToLower(strings.TrimSpace(r.Direction))),
		PartyName:        r.PartyName,
		PartyID:          r.PartyID,
		PartyType:        partyType,
		Amount:           r.Amount,
		Currency:         currency,
		SafeID:           r.SafeID,
		SafeName:         r.SafeName,
		DistributionMode: voucher.DistributionMode(r.DistributionMode),
		Allocations:      r.Allocations,
		JournalLines:     r.JournalLines,
		Details:          r.Details,
		CreatedBy:        actor,
	}, nil
}

// CreateVoucherBatchRequest represents a batch of voucher drafts
type CreateVoucherBatchRequest struct {
	Vouchers []CreateVoucherRequest `json:"vouchers" binding:"required,min=1,max=500,dive"`
}

// BatchItemResponse is the outcome of one batch item
type BatchItemResponse struct {
	Index   int              `json:"index"`
	Voucher *voucher.Voucher `json:"voucher,omitempty"`
	Error   *ErrorInfo       `json:"error,omitempty"`
}

// NextNumberResponse is advisory only
type NextNumberResponse struct {
	Kind       string `json:"kind"`
	NextNumber int64  `json:"next_number"`
	Advisory   bool   `json:"advisory"`
}

// CreateTransferRequest represents a safe to safe transfer
type CreateTransferRequest struct {
	FromSafeID string          `json:"from_safe_id" binding:"required,uuid"`
	ToSafeID   string          `json:"to_safe_id" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" binding:"required"`
	Memo       string          `json:"memo,omitempty" binding:"max=2000"`
}

// TransferResponse carries both legs
type TransferResponse struct {
	Out *voucher.Voucher `json:"out"`
	In  *voucher.Voucher `json:"in"`
}

// ReconciliationParams represents the reconciliation query string
type ReconciliationParams struct {
	PartyID   string `form:"party_id" binding:"omitempty,uuid"`
	PartyName string `form:"party_name"`
	CourseID  string `form:"course_id" binding:"omitempty,uuid"`
	CourseFee string `form:"course_fee"`
	Currency  string `form:"currency"`
	Convert   bool   `form:"convert"`
}

// SetExchangeRateRequest represents a new institutional rate
type SetExchangeRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

// ExchangeRateResponse represents the current rate
type ExchangeRateResponse struct {
	Base        string `json:"base"`
	Quote       string `json:"quote"`
	Rate        string `json:"rate"`
	SetBy       string `json:"set_by"`
	EffectiveAt string `json:"effective_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
