package voucher

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrJournalTooFewLines  = errors.New("journal needs at least two nonzero lines")
	ErrJournalZeroTotal    = errors.New("journal total must be greater than zero")
	ErrNumberContention    = errors.New("voucher number allocation contended, retry later")
	ErrInvalidExchangeRate = errors.New("exchange rate must be positive")
)

// Transfer stages at which a partial application can be detected
const (
	TransferStageSecondLeg = "second_leg"
	TransferStageLink      = "link"
)

// DistributionExceeded indicates allocations that add up to more than the voucher amount
type DistributionExceeded struct {
	Excess decimal.Decimal
}

func (e DistributionExceeded) Error() string {
	return "allocations exceed voucher amount by " + e.Excess.String()
}

// Is matches any DistributionExceeded when the target carries no excess
func (e DistributionExceeded) Is(target error) bool {
	t, ok := target.(DistributionExceeded)
	if !ok {
		return false
	}
	if t.Excess.IsZero() {
		return true
	}
	return e.Excess.Equal(t.Excess)
}

// JournalUnbalanced carries the signed debit minus credit difference
type JournalUnbalanced struct {
	Difference decimal.Decimal
}

func (e JournalUnbalanced) Error() string {
	return "journal is unbalanced, debit minus credit is " + e.Difference.String()
}

func (e JournalUnbalanced) Is(target error) bool {
	t, ok := target.(JournalUnbalanced)
	if !ok {
		return false
	}
	if t.Difference.IsZero() {
		return true
	}
	return e.Difference.Equal(t.Difference)
}

// ValidationFailed names the offending field of a draft
type ValidationFailed struct {
	Field  string
	Reason string
}

func (e ValidationFailed) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return "validation failed on " + e.Field + ": " + e.Reason
}

func (e ValidationFailed) Is(target error) bool {
	t, ok := target.(ValidationFailed)
	if !ok {
		return false
	}
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}

// InvalidTransferTarget rejects a transfer whose source and destination are the same safe
type InvalidTransferTarget struct {
	SafeID uuid.UUID
}

func (e InvalidTransferTarget) Error() string {
	return "cannot transfer from a safe to itself: " + e.SafeID.String()
}

func (e InvalidTransferTarget) Is(target error) bool {
	t, ok := target.(InvalidTransferTarget)
	if !ok {
		return false
	}
	if t.SafeID == uuid.Nil {
		return true
	}
	return e.SafeID == t.SafeID
}

// TransferPartiallyApplied reports a transfer that left an unpaired leg behind.
// OrphanID is always the persisted first leg; CounterpartID is set once the second leg exists.
type TransferPartiallyApplied struct {
	OrphanID      uuid.UUID
	CounterpartID uuid.UUID
	Stage         string
	Cause         error
}

func (e TransferPartiallyApplied) Error() string {
	msg := "transfer partially applied at " + e.Stage + ", orphan voucher " + e.OrphanID.String()
	if e.CounterpartID != uuid.Nil {
		msg += ", counterpart voucher " + e.CounterpartID.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e TransferPartiallyApplied) Unwrap() error {
	return e.Cause
}

func (e TransferPartiallyApplied) Is(target error) bool {
	t, ok := target.(TransferPartiallyApplied)
	if !ok {
		return false
	}
	if t.OrphanID == uuid.Nil {
		return true
	}
	return e.OrphanID == t.OrphanID
}

// ErrVoucherNotFound indicates a missing voucher
type ErrVoucherNotFound struct {
	ID uuid.UUID
}

func (e ErrVoucherNotFound) Error() string {
	return "voucher not found: " + e.ID.String()
}

func (e ErrVoucherNotFound) Is(target error) bool {
	t, ok := target.(ErrVoucherNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
