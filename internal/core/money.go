// Package core provides money parsing and handling utilities.
//
// Amounts are kept as shopspring decimals so running totals never drift.
// Currency codes are presentation labels only: they pick a symbol and never
// change the magnitude of an amount.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	INR Currency = "INR"
	LKR Currency = "LKR"

	DefaultCurrency = USD
)

type Currency string

var currencySymbols = map[Currency]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	JPY: "¥",
	CAD: "C$",
	AUD: "A$",
	INR: "₹",
	LKR: "₨",
}

var currencies = []Currency{USD, EUR, GBP, JPY, CAD, AUD, INR, LKR}

// Currencies returns the supported currency codes in display order.
func Currencies() []Currency {
	return append([]Currency(nil), currencies...)
}

// ParseCurrency accepts a 3-letter code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := currencySymbols[c]; !ok {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

func (c Currency) Symbol() string {
	return currencySymbols[c]
}

// ParseAmount converts user text to a strictly positive decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, as are
// a leading plus sign and exponent form (1e2). Negative values, blanks and
// zero are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" || s[0] < '0' && s[0] != '.' || s[0] > '9' {
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

// ValidateAmount rejects zero, negative and out-of-range amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || !InRange(d) {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal orders of magnitude a float64 can hold without overflowing to
// infinity or underflowing to zero.
const (
	maxMagnitude = 309
	minMagnitude = -323
)

// InRange reports whether d is representable as a finite, non-underflowing
// float64. Zero is in range. The check only looks at the digit count and
// exponent, so it stays cheap for inputs like 1e50000000.
func InRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	mag := d.NumDigits() + int(d.Exponent())
	return mag <= maxMagnitude && mag >= minMagnitude
}

// FormatMoney renders the symbol followed by the absolute amount with two
// decimals and thousands separators, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, c Currency) string {
	sym := c.Symbol()
	if sym == "" {
		sym = DefaultCurrency.Symbol()
	}
	intPart, frac, _ := strings.Cut(amount.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		// Beyond int64: ungrouped digits.
		return sym + intPart + "." + frac
	}
	return sym + enUS.Sprintf("%d", n) + "." + frac
}

var enUS = message.NewPrinter(language.AmericanEnglish)
