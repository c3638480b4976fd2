package voucher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultJournalEpsilon is the tolerated absolute gap between debit and credit totals
var DefaultJournalEpsilon = decimal.RequireFromString("0.01")

// ValidateJournal checks double-entry balance with the default tolerance and returns the debit total
func ValidateJournal(lines []JournalLine) (decimal.Decimal, error) {
	return ValidateJournalWithin(lines, DefaultJournalEpsilon)
}

// ValidateJournalWithin checks double-entry balance within epsilon and returns the debit total
func ValidateJournalWithin(lines []JournalLine, epsilon decimal.Decimal) (decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	nonzero := 0

	for i, line := range lines {
		field := fmt.Sprintf("journal_lines[%d]", i)
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, ValidationFailed{Field: field, Reason: "debit and credit must not be negative"}
		}
		if err := CheckPlaces(field, line.Debit, AmountPlaces); err != nil {
			return decimal.Zero, err
		}
		if err := CheckPlaces(field, line.Credit, AmountPlaces); err != nil {
			return decimal.Zero, err
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return decimal.Zero, ValidationFailed{Field: field, Reason: fmt.Sprintf("line %q carries both debit and credit", line.AccountID)}
		}
		if line.Debit.IsPositive() || line.Credit.IsPositive() {
			nonzero++
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}

	if nonzero < 2 {
		return decimal.Zero, ErrJournalTooFewLines
	}

	diff := debit.Sub(credit)
	if diff.Abs().GreaterThan(epsilon) {
		return decimal.Zero, JournalUnbalanced{Difference: diff}
	}
	if !debit.IsPositive() {
		return decimal.Zero, ErrJournalZeroTotal
	}

	return debit, nil
}
