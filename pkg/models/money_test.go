package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoneyString(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{Money{Amount: 2000, Currency: "usd"}, "20.00 USD"},
		{Money{Amount: 5, Currency: "eur"}, "0.05 EUR"},
		{Money{Amount: 1500, Currency: "jpy"}, "1500 JPY"},
		{Money{Amount: 0, Currency: "gbp"}, "0.00 GBP"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.money.String())
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	assert.Equal(t, Money{Amount: 1999, Currency: "usd"}, MoneyFromDecimal(decimal.RequireFromString("19.99"), "USD"))
	assert.Equal(t, Money{Amount: 1500, Currency: "jpy"}, MoneyFromDecimal(decimal.RequireFromString("1500"), "jpy"))
	assert.Equal(t, Money{Amount: 1000, Currency: "usd"}, MoneyFromDecimal(decimal.RequireFromString("9.995"), "usd"))
}
