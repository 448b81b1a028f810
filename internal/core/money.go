// Package core provides the ledger domain types and money handling utilities.
//
// Amounts are exact decimals (shopspring/decimal); nothing in this module
// sums money through float64.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount string to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// parsed so that callers can report a non-positive amount as ErrInvalidAmount
// instead of a format error.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	// decimal accepts exponents; amounts typed by people never carry one
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount enforces amount > 0.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Number renders a decimal as a JSON number literal.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
