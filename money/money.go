// Package money keeps currency amounts as integer cents so running sums do not
// drift. Decimal conversion only happens at the JSON and display boundary.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in the smallest currency unit.
type Cents int64

// MaxAmount is the largest amount an order column (decimal(10,2)) can hold.
const MaxAmount Cents = 99_999_999_99

var (
	hundred = decimal.NewFromInt(100)
	maxDec  = decimal.NewFromInt(int64(MaxAmount))
)

var (
	// ErrInvalidAmount is returned for input that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrOutOfRange is returned for amounts beyond ±MaxAmount.
	ErrOutOfRange = errors.New("amount out of range")
)

// ParseFloat rounds a decimal currency value (e.g. 3.5) to cents, refusing
// NaN, infinities and anything beyond ±MaxAmount.
func ParseFloat(v float64) (Cents, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return fromDecimal(decimal.NewFromFloat(v))
}

// FromFloat is ParseFloat for trusted values: NaN and infinities convert to
// zero and out-of-range amounts saturate at ±MaxAmount.
func FromFloat(v float64) Cents {
	c, err := ParseFloat(v)
	if errors.Is(err, ErrOutOfRange) {
		if v < 0 {
			return -MaxAmount
		}
		return MaxAmount
	}
	return c
}

func fromDecimal(d decimal.Decimal) (Cents, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxDec) {
		return 0, ErrOutOfRange
	}
	return Cents(cents.IntPart()), nil
}

// Parse reads a user-entered amount such as "2.50" or "$2.5".
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return fromDecimal(d)
}

// Percent returns c × fraction rounded half away from zero to the nearest cent.
func (c Cents) Percent(fraction float64) Cents {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return 0
	}
	return Cents(decimal.NewFromInt(int64(c)).Mul(decimal.NewFromFloat(fraction)).Round(0).IntPart())
}

// Mul multiplies a unit price by a quantity, saturating instead of wrapping
// on int64 overflow.
func (c Cents) Mul(qty int) Cents {
	p := decimal.NewFromInt(int64(c)).Mul(decimal.NewFromInt(int64(qty)))
	switch {
	case p.GreaterThan(decimal.NewFromInt(math.MaxInt64)):
		return math.MaxInt64
	case p.LessThan(decimal.NewFromInt(math.MinInt64)):
		return math.MinInt64
	}
	return Cents(p.IntPart())
}

// Float64 converts back to a two-decimal currency value.
func (c Cents) Float64() float64 {
	f, _ := decimal.New(int64(c), -2).Float64()
	return f
}

// String renders the amount with exactly two decimals, e.g. "13.80".
func (c Cents) String() string {
	return decimal.New(int64(c), -2).StringFixed(2)
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}
