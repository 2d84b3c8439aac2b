package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "5,000", want: "5000"},
		{in: "10,000", want: "10000"},
		{in: " 12 500.50 ", want: "12500.5"},
		{in: "1_000_000", want: "1000000"},
		{in: "", wantErr: ErrEmptyAmount},
		{in: " , ", wantErr: ErrEmptyAmount},
		{in: "0", wantErr: ErrNonPositiveAmount},
		{in: "0.00", wantErr: ErrNonPositiveAmount},
		{in: "-50", wantErr: ErrNonPositiveAmount},
		{in: "abc", wantErr: ErrInvalidAmount},
		{in: "1.2.3", wantErr: ErrInvalidAmount},
		{in: "1e3", wantErr: ErrInvalidAmount},
		{in: ".", wantErr: ErrInvalidAmount},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Parse(%q): expected %v, got %v", tc.in, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("Parse(%q) = %s, want %s", tc.in, got.String(), tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"5":          "5",
		"999":        "999",
		"1000":       "1,000",
		"12500.5":    "12,500.5",
		"1234567.25": "1,234,567.25",
		"-4200":      "-4,200",
	}
	for in, want := range cases {
		if got := Format(decimal.RequireFromString(in)); got != want {
			t.Fatalf("Format(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFormatIsIdempotent(t *testing.T) {
	inputs := []string{"5,000", "5000", "1,2,3,4", "000123", "10,000,000", "7", "12,345,678,901", "1 000 000"}
	for _, in := range inputs {
		first, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		once := Format(first)
		second, err := Parse(once)
		if err != nil {
			t.Fatalf("Parse(%q): %v", once, err)
		}
		if twice := Format(second); twice != once {
			t.Fatalf("format not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFormatInput(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"5000":      "5,000",
		"5,0000":    "50,000",
		"0005":      "5",
		"0":         "0",
		"1234.":     "1,234.",
		"1234.567":  "1,234.56",
		"12.3.4":    "12.34",
		".5":        "0.5",
		"abc":       "",
		"₦ 2500":    "2,500",
		"1,000,000": "1,000,000",
	}
	for in, want := range cases {
		if got := FormatInput(in); got != want {
			t.Fatalf("FormatInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWireAndDisplay(t *testing.T) {
	d := decimal.RequireFromString("5000")
	if Wire(d) != "5000" {
		t.Fatalf("unexpected wire form %s", Wire(d))
	}
	if got := Display("₦", d); got != "₦5,000.00" {
		t.Fatalf("unexpected display %s", got)
	}
	if got := Display("KSh", decimal.RequireFromString("1234567.891")); got != "KSh1,234,567.89" {
		t.Fatalf("unexpected display %s", got)
	}
}
