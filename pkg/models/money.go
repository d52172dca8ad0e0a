package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit, so amounts are already whole units.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// Money is an amount in the smallest currency unit together with its
// lowercase ISO 4217 currency code.
type Money struct {
	Amount   int64
	Currency string
}

func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(currency)]
	return ok
}

// Decimal converts the minor-unit amount into major units.
func (m Money) Decimal() decimal.Decimal {
	if IsZeroDecimal(m.Currency) {
		return decimal.NewFromInt(m.Amount)
	}
	return decimal.New(m.Amount, -2)
}

func (m Money) String() string {
	places := int32(2)
	if IsZeroDecimal(m.Currency) {
		places = 0
	}
	return m.Decimal().StringFixed(places) + " " + strings.ToUpper(m.Currency)
}

// MoneyFromDecimal converts a major-unit amount into minor units, rounding
// half away from zero.
func MoneyFromDecimal(amount decimal.Decimal, currency string) Money {
	if !IsZeroDecimal(currency) {
		amount = amount.Shift(2)
	}
	return Money{Amount: amount.Round(0).IntPart(), Currency: strings.ToLower(currency)}
}
