package voucher

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind is the type of money movement a voucher records
type Kind string

const (
	KindReceipt        Kind = "receipt"
	KindSpecialReceipt Kind = "special_receipt"
	KindPayment        Kind = "payment"
	KindJournal        Kind = "journal"
	KindTransferLeg    Kind = "transfer_leg"
)

var kinds = []Kind{KindReceipt, KindSpecialReceipt, KindPayment, KindJournal, KindTransferLeg}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RequireStandalone rejects kinds that cannot be recorded on their own. Transfer
// legs only exist as a linked pair written by the transfer orchestrator.
func RequireStandalone(k Kind) error {
	if k == KindTransferLeg {
		return ValidationFailed{Field: "kind", Reason: "transfer legs are recorded through a transfer"}
	}
	if !k.Valid() {
		return ValidationFailed{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", k)}
	}
	return nil
}

// IsReceipt reports whether k counts toward a party's paid total
func (k Kind) IsReceipt() bool {
	return k == KindReceipt || k == KindSpecialReceipt
}

// Family groups kinds that share a number series under per-kind numbering
func (k Kind) Family() string {
	switch k {
	case KindReceipt, KindSpecialReceipt:
		return "receipts"
	case KindPayment:
		return "payments"
	case KindJournal:
		return "journals"
	case KindTransferLeg:
		return "transfers"
	default:
		return string(k)
	}
}

// DefaultDirection is the cash direction implied by the kind. Transfer legs carry their own.
func (k Kind) DefaultDirection() Direction {
	switch k {
	case KindReceipt, KindSpecialReceipt:
		return DirectionIn
	case KindPayment:
		return DirectionOut
	case KindJournal:
		return DirectionNone
	default:
		return ""
	}
}

// ParseKind converts a raw string into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ValidationFailed{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", s)}
	}
	return k, nil
}

// Direction is the effect of a voucher on its safe
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionNone Direction = "none"
)

// Opposite flips in and out
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionIn:
		return DirectionOut
	case DirectionOut:
		return DirectionIn
	default:
		return d
	}
}

// PartyType is the closed set of counterparties a voucher may reference
type PartyType string

const (
	PartyCompany      PartyType = "company"
	PartyClient       PartyType = "client"
	PartyExpense      PartyType = "expense"
	PartyStudent      PartyType = "student"
	PartyInstructor   PartyType = "instructor"
	PartySafeTransfer PartyType = "safe_transfer"
)

// Valid reports whether p is one of the known party types
func (p PartyType) Valid() bool {
	switch p {
	case PartyCompany, PartyClient, PartyExpense, PartyStudent, PartyInstructor, PartySafeTransfer:
		return true
	}
	return false
}

// ParsePartyType converts a raw string into a PartyType, rejecting unknown values
func ParsePartyType(s string) (PartyType, error) {
	p := PartyType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ValidationFailed{Field: "party_type", Reason: fmt.Sprintf("unknown party type %q", s)}
	}
	return p, nil
}

// Currency is an ISO code accepted by the ledger
type Currency string

const (
	CurrencyIQD Currency = "IQD"
	CurrencyUSD Currency = "USD"
)

// BaseCurrency is the currency exchange rates convert into
const BaseCurrency = CurrencyIQD

// Valid reports whether c is IQD or USD
func (c Currency) Valid() bool {
	return c == CurrencyIQD || c == CurrencyUSD
}

// ParseCurrency converts a raw string into a Currency
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ValidationFailed{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", s)}
	}
	return c, nil
}

// DistributionMode selects how allocations are interpreted
type DistributionMode string

const (
	DistributionNone       DistributionMode = "none"
	DistributionCategories DistributionMode = "categories"
	DistributionCourses    DistributionMode = "courses"
)

// Allocation is a named share of a voucher amount
type Allocation struct {
	Name     string          `json:"name" validate:"max=128"`
	CourseID *uuid.UUID      `json:"course_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// JournalLine is one side of a manual double-entry
type JournalLine struct {
	AccountID   string          `json:"account_id" validate:"required,max=64"`
	AccountName string          `json:"account_name" validate:"max=255"`
	AccountType string          `json:"account_type" validate:"max=64"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Voucher is a single recorded money movement. Vouchers are append-only; only
// LinkedVoucherID is ever patched, and only on transfer legs.
type Voucher struct {
	ID               uuid.UUID        `json:"id"`
	Number           int64            `json:"number"`
	NumberSeries     string           `json:"number_series"`
	Kind             Kind             `json:"kind"`
	Direction        Direction        `json:"direction"`
	PartyName        string           `json:"party_name"`
	PartyID          *uuid.UUID       `json:"party_id,omitempty"`
	PartyType        PartyType        `json:"party_type,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         Currency         `json:"currency"`
	ExchangeRate     decimal.Decimal  `json:"exchange_rate"`
	SafeID           *uuid.UUID       `json:"safe_id,omitempty"`
	SafeName         string           `json:"safe_name,omitempty"`
	DistributionMode DistributionMode `json:"distribution_mode"`
	Allocations      []Allocation     `json:"allocations,omitempty"`
	JournalLines     []JournalLine    `json:"journal_lines,omitempty"`
	Details          string           `json:"details,omitempty"`
	CreatedBy        shared.Actor     `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	LinkedVoucherID  *uuid.UUID       `json:"linked_voucher_id,omitempty"`
}

// BaseAmount converts the voucher amount into IQD using its frozen rate
func (v *Voucher) BaseAmount() decimal.Decimal {
	return v.Amount.Mul(v.ExchangeRate)
}

// AllocatedTo returns the amount allocated to the given course
func (v *Voucher) AllocatedTo(courseID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	if v.DistributionMode != DistributionCourses {
		return total
	}
	for _, a := range v.Allocations {
		if a.CourseID != nil && *a.CourseID == courseID {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// Draft is a caller's intent to record a voucher, before numbering and rate resolution.
type Draft struct {
	Kind             Kind             `json:"kind" validate:"required,oneof=receipt special_receipt payment journal transfer_leg"`
	Direction        Direction        `json:"direction,omitempty" validate:"omitempty,oneof=in out none"`
	PartyName        string           `json:"party_name" validate:"max=255"`
	PartyID          *uuid.UUID       `json:"party_id,omitempty"`
	PartyType        PartyType        `json:"party_type,omitempty" validate:"omitempty,oneof=company client expense student instructor safe_transfer"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         Currency         `json:"currency" validate:"required,oneof=IQD USD"`
	SafeID           *uuid.UUID       `json:"safe_id,omitempty"`
	SafeName         string           `json:"safe_name,omitempty" validate:"max=255"`
	DistributionMode DistributionMode `json:"distribution_mode,omitempty" validate:"omitempty,oneof=none categories courses"`
	Allocations      []Allocation     `json:"allocations,omitempty" validate:"dive"`
	JournalLines     []JournalLine    `json:"journal_lines,omitempty" validate:"dive"`
	Details          string           `json:"details,omitempty" validate:"max=2000"`
	CreatedBy        shared.Actor     `json:"created_by"`

	// FixedRate pins the exchange rate instead of reading the live one.
	FixedRate *decimal.Decimal `json:"-"`
}

// NewVoucher applies the ledger invariants to a draft and returns an unnumbered voucher
// with no exchange rate. Journal amounts are replaced by the balanced debit total.
func NewVoucher(d Draft, journalEpsilon decimal.Decimal) (*Voucher, error) {
	if !d.Kind.Valid() {
		return nil, ValidationFailed{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	if !d.Currency.Valid() {
		return nil, ValidationFailed{Field: "currency", Reason: fmt.Sprintf("unsupported currency %q", d.Currency)}
	}
	if err := d.CreatedBy.Validate(); err != nil {
		return nil, ValidationFailed{Field: "created_by", Reason: err.Error()}
	}

	direction, err := resolveDirection(d.Kind, d.Direction)
	if err != nil {
		return nil, err
	}

	if d.Kind != KindJournal || d.PartyType != "" {
		if !d.PartyType.Valid() {
			return nil, ValidationFailed{Field: "party_type", Reason: fmt.Sprintf("unknown party type %q", d.PartyType)}
		}
	}
	if d.Kind != KindJournal {
		if strings.TrimSpace(d.PartyName) == "" {
			return nil, ValidationFailed{Field: "party_name", Reason: "party name is required"}
		}
		if d.SafeID == nil || *d.SafeID == uuid.Nil {
			return nil, ValidationFailed{Field: "safe_id", Reason: "safe is required"}
		}
	}

	mode := d.DistributionMode
	if mode == "" {
		mode = DistributionNone
	}

	v := &Voucher{
		ID:               uuid.New(),
		Kind:             d.Kind,
		Direction:        direction,
		PartyName:        strings.TrimSpace(d.PartyName),
		PartyID:          d.PartyID,
		PartyType:        d.PartyType,
		Currency:         d.Currency,
		SafeID:           d.SafeID,
		SafeName:         d.SafeName,
		DistributionMode: mode,
		Details:          d.Details,
		CreatedBy:        d.CreatedBy,
		CreatedAt:        time.Now().UTC(),
	}

	if err := CheckPlaces("amount", d.Amount, AmountPlaces); err != nil {
		return nil, err
	}

	if d.Kind == KindJournal {
		if mode != DistributionNone || len(d.Allocations) > 0 {
			return nil, ValidationFailed{Field: "allocations", Reason: "journal entries cannot carry allocations"}
		}
		total, err := ValidateJournalWithin(d.JournalLines, journalEpsilon)
		if err != nil {
			return nil, err
		}
		if !d.Amount.IsZero() && !d.Amount.Equal(total) {
			return nil, ValidationFailed{Field: "amount", Reason: fmt.Sprintf("amount %s does not match journal total %s", d.Amount, total)}
		}
		v.Amount = total
		v.JournalLines = append([]JournalLine(nil), d.JournalLines...)
		return v, nil
	}

	if len(d.JournalLines) > 0 {
		return nil, ValidationFailed{Field: "journal_lines", Reason: "only journal vouchers carry journal lines"}
	}
	if !d.Amount.IsPositive() {
		return nil, ValidationFailed{Field: "amount", Reason: "amount must be positive"}
	}
	allocations, err := ValidateDistribution(d.Amount, d.PartyType, mode, d.Allocations)
	if err != nil {
		return nil, err
	}
	v.Amount = d.Amount
	v.Allocations = allocations
	return v, nil
}

func resolveDirection(kind Kind, requested Direction) (Direction, error) {
	if kind == KindTransferLeg {
		if requested != DirectionIn && requested != DirectionOut {
			return "", ValidationFailed{Field: "direction", Reason: "transfer legs must be in or out"}
		}
		return requested, nil
	}
	implied := kind.DefaultDirection()
	if requested != "" && requested != implied {
		return "", ValidationFailed{Field: "direction", Reason: fmt.Sprintf("%s vouchers are always %s", kind, implied)}
	}
	return implied, nil
}
