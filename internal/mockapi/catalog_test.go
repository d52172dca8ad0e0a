package mockapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal int64
		currency string
		want     int64
	}{
		{"percent exact", Coupon{PercentOff: 10}, 1000, "usd", 100},
		{"percent half rounds up", Coupon{PercentOff: 10}, 1005, "usd", 101},
		{"percent below half rounds down", Coupon{PercentOff: 10}, 1004, "usd", 100},
		{"percent fraction above half", Coupon{PercentOff: 25}, 999, "usd", 250},
		{"percent of one cent", Coupon{PercentOff: 50}, 1, "usd", 1},
		{"amount off", Coupon{AmountOff: 300, Currency: "usd"}, 1000, "usd", 300},
		{"amount off capped at subtotal", Coupon{AmountOff: 3000, Currency: "usd"}, 1000, "usd", 1000},
		{"amount off other currency", Coupon{AmountOff: 300, Currency: "eur"}, 1000, "usd", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coupon.discount(tt.subtotal, tt.currency))
		})
	}
}
