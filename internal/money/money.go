package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Values flow through arithmetic at full
// precision; rounding happens only at the documented boundaries (discount
// application and tax) via Round.
type Money = decimal.Decimal

// ErrInvalidAmount is returned when a string cannot be parsed as an amount.
var ErrInvalidAmount = errors.New("invalid money amount")

// Zero is the zero amount.
var Zero = decimal.Zero

// New builds an amount from an integer number of currency units.
func New(units int64) Money {
	return decimal.NewFromInt(units)
}

// FromString parses a decimal string amount.
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MustParse parses a decimal string amount and panics on failure. Intended
// for constants in tests and seed data.
func MustParse(s string) Money {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round applies commercial half-up rounding to two decimal places.
// decimal.Round rounds half away from zero, which matches half-up for the
// non-negative amounts this engine produces.
func Round(m Money) Money {
	return m.Round(2)
}

// String formats an amount with exactly two decimal places for display and
// persistence. The underlying value keeps full precision.
func String(m Money) string {
	return m.StringFixed(2)
}
