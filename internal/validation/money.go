package validation

import (
	"github.com/shopspring/decimal"

	"bookcourier/internal/apperr"
)

// MoneyPlaces and maxMoney match the NUMERIC(12, 2) money columns.
const MoneyPlaces = 2

var maxMoney = decimal.New(1, 12-MoneyPlaces)

// Money checks that d is a positive amount every store can hold exactly: at
// most two decimal places and below 10^10.
func Money(field string, d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return apperr.Validation("%s must be greater than zero", field)
	case !d.Equal(d.Truncate(MoneyPlaces)):
		return apperr.Validation("%s must have at most %d decimal places", field, MoneyPlaces)
	case !d.LessThan(maxMoney):
		return apperr.Validation("%s must be less than %s", field, maxMoney)
	}
	return nil
}
