package voucher

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category names accepted in categories mode. Gates is always derived.
const (
	CategoryInternal = "internal"
	CategoryExternal = "external"
	CategoryFly      = "fly"
	CategoryGates    = "gates"
)

// ValidateDistribution checks that allocations never exceed amount and returns the
// allocations to persist. In categories mode the gates remainder is appended.
func ValidateDistribution(amount decimal.Decimal, partyType PartyType, mode DistributionMode, allocations []Allocation) ([]Allocation, error) {
	for i, a := range allocations {
		field := fmt.Sprintf("allocations[%d]", i)
		if a.Amount.IsNegative() {
			return nil, ValidationFailed{Field: field, Reason: "allocation must not be negative"}
		}
		if err := CheckPlaces(field, a.Amount, AmountPlaces); err != nil {
			return nil, err
		}
	}

	switch mode {
	case "", DistributionNone:
		if len(allocations) > 0 {
			return nil, ValidationFailed{Field: "allocations", Reason: "allocations require a distribution mode"}
		}
		return nil, nil
	case DistributionCategories:
		return distributeCategories(amount, allocations)
	case DistributionCourses:
		if partyType != PartyStudent {
			return nil, ValidationFailed{Field: "distribution_mode", Reason: "course distribution requires a student party"}
		}
		return distributeCourses(amount, allocations)
	default:
		return nil, ValidationFailed{Field: "distribution_mode", Reason: fmt.Sprintf("unknown distribution mode %q", mode)}
	}
}

func distributeCategories(amount decimal.Decimal, allocations []Allocation) ([]Allocation, error) {
	seen := make(map[string]bool, len(allocations))
	sum := decimal.Zero
	out := make([]Allocation, 0, len(allocations)+1)

	for i, a := range allocations {
		field := fmt.Sprintf("allocations[%d]", i)
		switch a.Name {
		case CategoryInternal, CategoryExternal, CategoryFly:
		case CategoryGates:
			return nil, ValidationFailed{Field: field, Reason: "gates is computed from the remainder and cannot be supplied"}
		default:
			return nil, ValidationFailed{Field: field, Reason: fmt.Sprintf("unknown category %q", a.Name)}
		}
		if a.CourseID != nil {
			return nil, ValidationFailed{Field: field, Reason: "category allocations cannot reference a course"}
		}
		if seen[a.Name] {
			return nil, ValidationFailed{Field: field, Reason: fmt.Sprintf("duplicate category %q", a.Name)}
		}
		seen[a.Name] = true
		sum = sum.Add(a.Amount)
		out = append(out, Allocation{Name: a.Name, Amount: a.Amount})
	}

	gates := amount.Sub(sum)
	if gates.IsNegative() {
		return nil, DistributionExceeded{Excess: gates.Neg()}
	}
	out = append(out, Allocation{Name: CategoryGates, Amount: gates})
	return out, nil
}

func distributeCourses(amount decimal.Decimal, allocations []Allocation) ([]Allocation, error) {
	if len(allocations) == 0 {
		return nil, ValidationFailed{Field: "allocations", Reason: "course distribution needs at least one course"}
	}

	seen := make(map[uuid.UUID]bool, len(allocations))
	sum := decimal.Zero
	out := make([]Allocation, 0, len(allocations))

	for i, a := range allocations {
		field := fmt.Sprintf("allocations[%d]", i)
		if a.CourseID == nil || *a.CourseID == uuid.Nil {
			return nil, ValidationFailed{Field: field, Reason: "course allocation needs a course id"}
		}
		if seen[*a.CourseID] {
			return nil, ValidationFailed{Field: field, Reason: "duplicate course " + a.CourseID.String()}
		}
		seen[*a.CourseID] = true
		sum = sum.Add(a.Amount)

		courseID := *a.CourseID
		out = append(out, Allocation{Name: a.Name, CourseID: &courseID, Amount: a.Amount})
	}

	if sum.GreaterThan(amount) {
		return nil, DistributionExceeded{Excess: sum.Sub(amount)}
	}
	return out, nil
}
