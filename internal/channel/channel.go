// Package channel resolves deposit channels and the currency conventions of a
// selected country.
package channel

import (
	"fmt"
	"strings"
)

// Kind identifies a deposit method.
type Kind string

const (
	// BankTransfer deposits are paid into a collection account by the user.
	BankTransfer Kind = "bank_transfer"
	// MobileMoney deposits are pulled from a mobile-money wallet via a provider.
	MobileMoney Kind = "mobile_money"
)

// ParseKind validates a channel name received from a client.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case BankTransfer, MobileMoney:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported deposit channel %q", s)
	}
}

// Label is the human-readable channel name.
func (k Kind) Label() string {
	switch k {
	case BankTransfer:
		return "Bank Transfer"
	case MobileMoney:
		return "Mobile Money"
	default:
		return string(k)
	}
}

const (
	// DefaultCountry is selected when a screen opens without a preference.
	DefaultCountry = "NG"
	// DefaultCurrency is used for countries missing from the lookup table.
	DefaultCurrency = "NGN"
	// DefaultSymbol is used for countries missing from the lookup table.
	DefaultSymbol = "₦"
)

type convention struct {
	currency string
	symbol   string
}

var conventions = map[string]convention{
	"NG": {"NGN", "₦"},
	"GH": {"GHS", "GH₵"},
	"KE": {"KES", "KSh"},
	"UG": {"UGX", "USh"},
	"TZ": {"TZS", "TSh"},
	"RW": {"RWF", "FRw"},
	"ZA": {"ZAR", "R"},
	"ZM": {"ZMW", "ZK"},
	"CM": {"XAF", "FCFA"},
	"CG": {"XAF", "FCFA"},
	"GA": {"XAF", "FCFA"},
	"CD": {"CDF", "FC"},
	"CI": {"XOF", "CFA"},
	"SN": {"XOF", "CFA"},
	"BJ": {"XOF", "CFA"},
	"US": {"USD", "$"},
	"GB": {"GBP", "£"},
}

// CurrencyForCountry returns the ISO currency for an ISO country code.
func CurrencyForCountry(code string) string {
	if c, ok := conventions[normalize(code)]; ok {
		return c.currency
	}
	return DefaultCurrency
}

// SymbolForCountry returns the display symbol for an ISO country code.
func SymbolForCountry(code string) string {
	if c, ok := conventions[normalize(code)]; ok {
		return c.symbol
	}
	return DefaultSymbol
}

// Known reports whether code has its own entry in the lookup table.
func Known(code string) bool {
	_, ok := conventions[normalize(code)]
	return ok
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
