package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// Entry is the read-model projection of a voucher, kept per safe for statements
type Entry struct {
	VoucherID        uuid.UUID                `json:"voucher_id"`
	Number           int64                    `json:"number"`
	NumberSeries     string                   `json:"number_series"`
	Kind             voucher.Kind             `json:"kind"`
	Direction        voucher.Direction        `json:"direction"`
	PartyName        string                   `json:"party_name"`
	PartyID          *uuid.UUID               `json:"party_id,omitempty"`
	PartyType        voucher.PartyType        `json:"party_type,omitempty"`
	Amount           decimal.Decimal          `json:"amount"`
	Currency         voucher.Currency         `json:"currency"`
	ExchangeRate     decimal.Decimal          `json:"exchange_rate"`
	BaseAmount       decimal.Decimal          `json:"base_amount"`
	SafeID           *uuid.UUID               `json:"safe_id,omitempty"`
	SafeName         string                   `json:"safe_name,omitempty"`
	DistributionMode voucher.DistributionMode `json:"distribution_mode"`
	Allocations      []voucher.Allocation     `json:"allocations,omitempty"`
	Details          string                   `json:"details,omitempty"`
	CreatedBy        shared.Actor             `json:"created_by"`
	CreatedAt        time.Time                `json:"created_at"`
	LinkedVoucherID  *uuid.UUID               `json:"linked_voucher_id,omitempty"`
	ProjectedAt      time.Time                `json:"projected_at"`
}

// FromVoucher projects v. Journal lines stay in the system of record.
func FromVoucher(v *voucher.Voucher) *Entry {
	return &Entry{
		VoucherID:        v.ID,
		Number:           v.Number,
		NumberSeries:     v.NumberSeries,
		Kind:             v.Kind,
		Direction:        v.Direction,
		PartyName:        v.PartyName,
		PartyID:          v.PartyID,
		PartyType:        v.PartyType,
		Amount:           v.Amount,
		Currency:         v.Currency,
		ExchangeRate:     v.ExchangeRate,
		BaseAmount:       v.BaseAmount(),
		SafeID:           v.SafeID,
		SafeName:         v.SafeName,
		DistributionMode: v.DistributionMode,
		Allocations:      v.Allocations,
		Details:          v.Details,
		CreatedBy:        v.CreatedBy,
		CreatedAt:        v.CreatedAt,
		LinkedVoucherID:  v.LinkedVoucherID,
		ProjectedAt:      time.Now().UTC(),
	}
}

// Voucher rebuilds the voucher fields the projection carries
func (e *Entry) Voucher() *voucher.Voucher {
	return &voucher.Voucher{
		ID:               e.VoucherID,
		Number:           e.Number,
		NumberSeries:     e.NumberSeries,
		Kind:             e.Kind,
		Direction:        e.Direction,
		PartyName:        e.PartyName,
		PartyID:          e.PartyID,
		PartyType:        e.PartyType,
		Amount:           e.Amount,
		Currency:         e.Currency,
		ExchangeRate:     e.ExchangeRate,
		SafeID:           e.SafeID,
		SafeName:         e.SafeName,
		DistributionMode: e.DistributionMode,
		Allocations:      e.Allocations,
		Details:          e.Details,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
		LinkedVoucherID:  e.LinkedVoucherID,
	}
}
