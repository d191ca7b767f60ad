// Package money converts between integer cents and two-decimal currency values.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Amount is a currency value held as integer cents.
type Amount int64

var (
	ErrPrecision  = errors.New("amount has more than two decimal places")
	ErrNegative   = errors.New("amount must not be negative")
	ErrOutOfRange = errors.New("amount is out of range")
)

var (
	hundred  = decimal.NewFromInt(100)
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

func FromCents(cents int64) Amount {
	return Amount(cents)
}

// Parse reads a decimal string such as "12.50".
func Parse(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return FromDecimal(d)
}

// FromDecimal rejects values that cannot be represented in cents.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Round(2).Equal(d) {
		return 0, ErrPrecision
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, ErrPrecision
	}
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return Amount(cents.IntPart()), nil
}

// Times multiplies by a quantity; ErrOutOfRange when the product does not fit.
func (a Amount) Times(qty int) (Amount, error) {
	if qty < 0 {
		return 0, fmt.Errorf("negative quantity %d", qty)
	}
	if a == 0 || qty == 0 {
		return 0, nil
	}
	product := a * Amount(qty)
	if product/Amount(qty) != a {
		return 0, ErrOutOfRange
	}
	return product, nil
}

// Plus adds b; ErrOutOfRange when the sum does not fit.
func (a Amount) Plus(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOutOfRange
	}
	return sum, nil
}

func (a Amount) Cents() int64 {
	return int64(a)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Shift(-2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// NonNegative returns ErrNegative for amounts below zero.
func (a Amount) NonNegative() error {
	if a < 0 {
		return ErrNegative
	}
	return nil
}

// Within reports whether a and other differ by at most tolerance.
func (a Amount) Within(other, tolerance Amount) bool {
	diff := a - other
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	parsed, err := Parse(string(raw))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
