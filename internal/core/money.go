// Package core holds the household roster, the per-session ledger and the
// pure computations over it.
//
// This file contains the peso formatting and parsing helpers.
package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxAmount caps any single charge or base so per-person and grand totals
// stay far from int64 overflow.
const MaxAmount int64 = 1 << 50

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount exceeds maximum")
)

// FormatCOP renders an amount as "$" followed by period-grouped digits,
// e.g. 1234567 -> "$1.234.567".
func FormatCOP(amount int64) string {
	s := strings.ReplaceAll(humanize.Comma(amount), ",", ".")
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// ParseAmount converts a form value to a non-negative whole amount.
//
// Blank input is zero. A leading "$" and period grouping are accepted, so
// values copied from the summary ("$1.234") round-trip. Grouping must be
// well formed: a leading group of one to three digits followed by groups of
// exactly three. Decimals, signs and any other characters are rejected.
//
// Examples:
//
//	ParseAmount("")        -> 0, nil
//	ParseAmount("85000")   -> 85000, nil
//	ParseAmount("$85.000") -> 85000, nil
//	ParseAmount("12.5")    -> 0, ErrInvalidAmount
//	ParseAmount("-1")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, nil
	}
	groups := strings.Split(s, ".")
	for i, g := range groups {
		if !isDigits(g) {
			return 0, ErrInvalidAmount
		}
		if len(groups) > 1 && (i == 0 && len(g) > 3 || i > 0 && len(g) != 3) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(strings.Join(groups, ""), 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v > MaxAmount {
		return 0, ErrAmountTooLarge
	}
	return v, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
