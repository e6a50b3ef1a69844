// Package parser extracts transactions from free-text messages: amounts
// with locale-ambiguous separators, expense category text and income
// descriptions, one or more per message.
package parser

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotANumber indicates the input contains no parseable number.
	ErrNotANumber = errors.New("not a number")
	// ErrNonPositive indicates the parsed amount is zero or negative.
	ErrNonPositive = errors.New("amount must be greater than zero")
)

// NormalizeAmount parses a raw numeric string with locale-ambiguous
// separators into an exact decimal. Ordinary and non-breaking spaces are
// treated as grouping and stripped. When both "." and "," appear, the
// rightmost one is the decimal separator only if it is followed by 1-2
// digits; the same trailing-digit heuristic applies when a single
// separator type appears. Anything else is grouping. "1.234" therefore
// parses as 1234 - a documented policy, not a bug.
//
// The sign is preserved: callers decide whether a negative result is an
// error (see ParsePositiveAmount) or an intent marker to be folded into
// the transaction direction.
func NormalizeAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimPrefix(cleaned, "+")

	if !strings.ContainsAny(cleaned, "0123456789") {
		return decimal.Zero, ErrNotANumber
	}

	sep := pickDecimalSeparator(cleaned)
	if sep != 0 {
		other := byte(',')
		if sep == ',' {
			other = '.'
		}
		cleaned = strings.ReplaceAll(cleaned, string(other), "")
		cleaned = strings.ReplaceAll(cleaned, string(sep), ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return amount, nil
}

// pickDecimalSeparator returns the separator byte to treat as the decimal
// marker, or 0 when every separator is grouping.
func pickDecimalSeparator(s string) byte {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var candidate byte
	var pos int
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			candidate, pos = '.', lastDot
		} else {
			candidate, pos = ',', lastComma
		}
	case lastDot >= 0:
		candidate, pos = '.', lastDot
	case lastComma >= 0:
		candidate, pos = ',', lastComma
	default:
		return 0
	}

	tail := s[pos+1:]
	if len(tail) < 1 || len(tail) > 2 || !allDigits(tail) {
		return 0
	}
	return candidate
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParsePositiveAmount normalizes raw and rejects non-positive results.
// Used by the guided quick-entry flow where the user types a bare amount.
func ParsePositiveAmount(raw string) (decimal.Decimal, error) {
	amount, err := NormalizeAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNonPositive
	}
	return amount, nil
}
