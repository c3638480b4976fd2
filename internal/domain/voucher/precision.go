package voucher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fractional digits kept by the amount and exchange_rate columns
const (
	AmountPlaces int32 = 4
	RatePlaces   int32 = 6
)

// CheckPlaces rejects d when storing it with the given number of fractional digits
// would change its value. Trailing zeros are accepted.
func CheckPlaces(field string, d decimal.Decimal, places int32) error {
	if !d.Equal(d.Truncate(places)) {
		return ValidationFailed{Field: field, Reason: fmt.Sprintf("%s has more than %d decimal places", d.String(), places)}
	}
	return nil
}
