// Package core holds the wallet domain model: accounts, categories,
// transactions, period summaries, and the money/date primitives they share.
package core

import (
	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount in integer cents. All arithmetic inside
// the ledger happens on cents; decimal strings exist only at the API boundary.
type Money struct {
	Cents int64
}

// maxParseCents guards against overflow when shifting parsed decimals.
var maxParseCents = decimal.New(1<<62, 0)

// ParseAmount converts a decimal string to Money with half-up rounding on the
// third decimal place. Both dot and comma separators are accepted. Zero and
// negative amounts are rejected: transaction amounts are always positive and
// direction comes from the transaction type.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234 cents
//	ParseAmount("12,34") -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents
func ParseAmount(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThanOrEqual(maxParseCents) {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Cents: cents.IntPart()}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseSignedAmount is ParseAmount without the positivity requirement.
// Used for account opening balances, which may legitimately be zero.
func ParseSignedAmount(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThanOrEqual(maxParseCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	normalized := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			continue
		}
		if c == ',' {
			c = '.'
		}
		normalized = append(normalized, c)
	}
	d, err := decimal.NewFromString(string(normalized))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// String renders the amount as a plain decimal with two places, e.g. "12.34".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}
