// Package money handles user-typed deposit amounts: grouping-aware parsing,
// live input formatting and the plain decimal form sent to the wallet API.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when no amount has been typed.
	ErrEmptyAmount = errors.New("amount is required")
	// ErrInvalidAmount is returned when the text is not a decimal number.
	ErrInvalidAmount = errors.New("amount must be a number")
	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
)

// MaxFractionDigits bounds the decimals a user may type.
const MaxFractionDigits = 2

// Parse converts amount text such as "5,000" or "12 500.50" into a decimal.
// Grouping separators are ignored; the result is always positive.
func Parse(text string) (decimal.Decimal, error) {
	cleaned := stripGrouping(text)
	if cleaned == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	body := cleaned
	if body[0] == '-' || body[0] == '+' {
		body = body[1:]
	}
	digits, dots := 0, 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if digits == 0 || dots > 1 {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}
	return d, nil
}

// Format renders d with comma-grouped thousands and only its significant
// fraction digits, e.g. 12500.50 -> "12,500.5".
func Format(d decimal.Decimal) string {
	s := d.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := sign + group(intPart)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatInput reformats text as it is being typed: non-numeric characters are
// dropped, only the first decimal point survives, at most MaxFractionDigits
// decimals are kept and the integer part is grouped. A trailing point is kept
// so the user can continue typing decimals.
func FormatInput(raw string) string {
	var intPart, frac strings.Builder
	seenDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			if seenDot {
				if frac.Len() < MaxFractionDigits {
					frac.WriteRune(r)
				}
				continue
			}
			intPart.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
		}
	}

	ip := strings.TrimLeft(intPart.String(), "0")
	if ip == "" && (seenDot || intPart.Len() > 0) {
		ip = "0"
	}
	out := group(ip)
	if seenDot {
		out += "." + frac.String()
	}
	return out
}

// Wire returns the plain decimal string used in API payloads ("5000").
func Wire(d decimal.Decimal) string {
	return d.String()
}

// Display renders an amount for receipts and balances: symbol, grouped
// integer part and exactly two decimals.
func Display(symbol string, d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + symbol + group(intPart) + "." + frac
}

func stripGrouping(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '_', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
