package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/colmado/internal/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "Equal", a: "600", b: "600", want: true},
		{name: "HalfCentAbove", a: "600.005", b: "600", want: true},
		{name: "ExactlyOneCent", a: "599.99", b: "600", want: true},
		{name: "JustOver", a: "600.0101", b: "600", want: false},
		{name: "FarOff", a: "500", b: "600", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, money.WithinTolerance(dec(tt.a), dec(tt.b)))
		})
	}
}

func TestSum(t *testing.T) {
	assert.True(t, money.Sum().IsZero())
	assert.True(t, dec("0.3").Equal(money.Sum(dec("0.1"), dec("0.2"))))
}

func TestRound(t *testing.T) {
	assert.Equal(t, "38.00", money.Round(dec("38")).StringFixed(2))
	assert.Equal(t, "0.01", money.Round(dec("0.005")).StringFixed(2))
	assert.Equal(t, "-0.01", money.Round(dec("-0.005")).StringFixed(2))
}

func TestValidRate(t *testing.T) {
	assert.True(t, money.ValidRate(dec("0")))
	assert.True(t, money.ValidRate(dec("0.038")))
	assert.False(t, money.ValidRate(dec("1")))
	assert.False(t, money.ValidRate(dec("-0.01")))
}
