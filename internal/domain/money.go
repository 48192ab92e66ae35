package domain

import (
	"github.com/shopspring/decimal"
)

const microsPerUnit = 1_000_000

// Money represents a ledger amount.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount int64 // micros
}

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64) Money {
	return Money{Amount: amount}
}

// FromUnits converts a whole/decimal unit amount (e.g. 10.5) to Money.
func FromUnits(units decimal.Decimal) Money {
	return Money{Amount: FromDecimal(units)}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(microsPerUnit))
}

// FromDecimal converts a decimal.Decimal to int64 micros.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(microsPerUnit)).IntPart()
}

// Percent returns pct percent of m, rounded down to the micro.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{Amount: decimal.NewFromInt(m.Amount).Mul(pct).Div(decimal.NewFromInt(100)).IntPart()}
}

// Multiply returns a new Money instance multiplied by a factor.
// It uses shopspring/decimal for precision and rounds down.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{Amount: FromDecimal(m.ToDecimal().Mul(factor))}
}

// String returns the string representation of the money.
func (m Money) String() string {
	return m.ToDecimal().StringFixed(2)
}
