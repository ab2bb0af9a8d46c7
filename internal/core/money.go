package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount reads a rupiah amount as whole rupiah.
//
// Amounts are free text on a claim, so this accepts what people type: an
// optional "Rp" prefix, "." as the thousands separator and "," as the decimal
// separator. A fractional part is rounded half-up. Zero, negative and
// malformed values are rejected.
//
// Examples:
//
//	ParseAmount("Rp 150.000") -> 150000, nil
//	ParseAmount("75000")      -> 75000, nil
//	ParseAmount("1.250,50")   -> 1251, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(strings.TrimPrefix(s[2:], "."))
	}
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart := parts[0], ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}

	groups := strings.Split(intPart, ".")
	for i, g := range groups {
		if g == "" || !allDigits(g) {
			return 0, ErrInvalidAmount
		}
		if i > 0 && len(g) != 3 {
			return 0, ErrInvalidAmount
		}
	}
	if !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}

	v, err := strconv.ParseInt(strings.Join(groups, ""), 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if fracPart != "" && fracPart[0] >= '5' {
		if v == 1<<63-1 {
			return 0, ErrInvalidAmount
		}
		v++
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FormatRupiah renders v the way the seeded claims are written, e.g.
// "Rp 150.000".
func FormatRupiah(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)

	var b strings.Builder
	b.WriteString("Rp ")
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return b.String()
}

// SumAmounts adds up every claim amount that parses. The second result is
// the number of claims whose amount was empty or unreadable.
func SumAmounts(claims []Claim) (int64, int) {
	var total int64
	skipped := 0
	for _, c := range claims {
		v, err := ParseAmount(c.Amount)
		if err != nil {
			skipped++
			continue
		}
		total += v
	}
	return total, skipped
}
