// Package core provides the finance domain types and money helpers.
//
// Amounts are decimal values; this file parses user-entered amounts and
// formats them for chat replies.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into a positive amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted, and a leading
// "$" is ignored. Negative, zero and malformed values return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("50")     -> 50, nil
//	ParseAmount("$12,50") -> 12.5, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount the way chat replies show it: no currency
// padding, trailing zeros dropped ("50", "12.5").
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1)
}

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
