// Package types provides common type aliases and value types.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity is a whole-unit stock quantity. Pharmacy stock is counted in
// whole strips or whole individual pieces, never fractions.
type Quantity int64

func (q Quantity) Int64() int64      { return int64(q) }
func (q Quantity) IsZero() bool      { return q == 0 }
func (q Quantity) IsPositive() bool  { return q > 0 }
func (q Quantity) IsNegative() bool  { return q < 0 }
func (q Quantity) Neg() Quantity     { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Min returns the smaller of q and other.
func (q Quantity) Min(other Quantity) Quantity {
	if q < other {
		return q
	}
	return other
}

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}
