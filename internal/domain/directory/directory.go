// Package directory describes the read-only safe and party lookups owned by other subsystems.
package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/shopspring/decimal"
)

// Safe is a named cash box. Its balance is always derived from vouchers.
type Safe struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CourseEnrollment ties a student to a course fee
type CourseEnrollment struct {
	CourseID   uuid.UUID        `json:"course_id"`
	CourseName string           `json:"course_name"`
	CourseFee  decimal.Decimal  `json:"course_fee"`
	Currency   voucher.Currency `json:"currency"`
}

// Party is a directory entry a voucher can reference
type Party struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Type        voucher.PartyType  `json:"type"`
	Enrollments []CourseEnrollment `json:"enrollments,omitempty"`
}

// Enrollment returns the enrollment for courseID, if any
func (p *Party) Enrollment(courseID uuid.UUID) (CourseEnrollment, bool) {
	for _, e := range p.Enrollments {
		if e.CourseID == courseID {
			return e, true
		}
	}
	return CourseEnrollment{}, false
}

// Directory is the lookup surface the ledger needs
type Directory interface {
	GetSafe(ctx context.Context, id uuid.UUID) (*Safe, error)
	GetParty(ctx context.Context, id uuid.UUID) (*Party, error)
	FindPartiesByName(ctx context.Context, name string) ([]*Party, error)
}

// ErrSafeNotFound indicates missing safe
type ErrSafeNotFound struct {
	ID uuid.UUID
}

func (e ErrSafeNotFound) Error() string {
	return "safe not found: " + e.ID.String()
}

func (e ErrSafeNotFound) Is(target error) bool {
	t, ok := target.(ErrSafeNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}

// ErrPartyNotFound indicates missing party
type ErrPartyNotFound struct {
	ID uuid.UUID
}

func (e ErrPartyNotFound) Error() string {
	return "party not found: " + e.ID.String()
}

func (e ErrPartyNotFound) Is(target error) bool {
	t, ok := target.(ErrPartyNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
