package channel

import "testing"

func TestUnknownCountriesUseDefaults(t *testing.T) {
	for _, code := range []string{"", "XX", "FR", "ng-x", "ZZZ", "12"} {
		if Known(code) {
			t.Fatalf("did not expect %q in table", code)
		}
		if got := CurrencyForCountry(code); got != DefaultCurrency {
			t.Fatalf("CurrencyForCountry(%q) = %s, want %s", code, got, DefaultCurrency)
		}
		if got := SymbolForCountry(code); got != DefaultSymbol {
			t.Fatalf("SymbolForCountry(%q) = %s, want %s", code, got, DefaultSymbol)
		}
	}
}

func TestKnownCountries(t *testing.T) {
	cases := []struct{ code, currency, symbol string }{
		{"NG", "NGN", "₦"},
		{"gh", "GHS", "GH₵"},
		{" KE ", "KES", "KSh"},
		{"CG", "XAF", "FCFA"},
		{"US", "USD", "$"},
	}
	for _, tc := range cases {
		if got := CurrencyForCountry(tc.code); got != tc.currency {
			t.Fatalf("CurrencyForCountry(%q) = %s, want %s", tc.code, got, tc.currency)
		}
		if got := SymbolForCountry(tc.code); got != tc.symbol {
			t.Fatalf("SymbolForCountry(%q) = %s, want %s", tc.code, got, tc.symbol)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("Mobile_Money"); err != nil || k != MobileMoney {
		t.Fatalf("expected mobile money, got %q (%v)", k, err)
	}
	if k, err := ParseKind("bank_transfer"); err != nil || k != BankTransfer {
		t.Fatalf("expected bank transfer, got %q (%v)", k, err)
	}
	if _, err := ParseKind("card"); err == nil {
		t.Fatal("expected error for unsupported channel")
	}
}
