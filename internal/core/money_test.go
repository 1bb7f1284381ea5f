package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestConverterToUSD(t *testing.T) {
	conv := NewConverter(RateTable{"USD": dec("1"), "EUR": dec("0.92"), "BRL": dec("5")}, DefaultConversionSpread)

	cases := []struct {
		amount   string
		currency string
		want     string
		known    bool
	}{
		{"100", "USD", "100", true},
		{"100", "usd", "100", true},
		{"100", "BRL", "19.1", true},
		{"-50", "USD", "-50", true},
		{"100", "JPY", "95.5", false},
	}
	for _, tc := range cases {
		got, known := conv.ToUSD(dec(tc.amount), tc.currency)
		if !got.Equal(dec(tc.want)) || known != tc.known {
			t.Fatalf("%s %s: got %s (known=%v), want %s (known=%v)", tc.amount, tc.currency, got, known, tc.want, tc.known)
		}
	}

	eur, _ := conv.ToUSD(dec("100"), "EUR")
	if eur.Round(2).String() != "103.8" {
		t.Fatalf("EUR conversion: got %s", eur.Round(2))
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{" -3.50 ", "-3.5", true},
		{"", "0", true},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && (err != nil || !got.Equal(dec(tc.want))) {
			t.Fatalf("ParseAmount(%q) = %s, %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseAmount(%q) expected error", tc.in)
		}
	}
}

func TestRateTableRejectsNonPositive(t *testing.T) {
	rt := RateTable{"EUR": decimal.Zero}
	if _, ok := rt.Rate("EUR"); ok {
		t.Fatalf("zero rate must be unusable")
	}
}
