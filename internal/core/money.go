package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultConversionSpread is the fraction lost on every non-USD conversion.
var DefaultConversionSpread = decimal.RequireFromString("0.045")

// RateTable maps a currency code to units of that currency per one USD.
type RateTable map[string]decimal.Decimal

// Rate returns the rate for code, reporting false when the table has no
// usable entry.
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t[strings.ToUpper(code)]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Converter normalizes amounts to USD.
type Converter struct {
	Rates  RateTable
	Spread decimal.Decimal
}

func NewConverter(rates RateTable, spread decimal.Decimal) Converter {
	return Converter{Rates: rates, Spread: spread}
}

// ToUSD converts amount from currency into USD. USD amounts pass through
// unchanged; every other currency is divided by its rate and reduced by the
// spread. A currency missing from the table is treated as rate 1 and
// reported with known=false.
func (c Converter) ToUSD(amount decimal.Decimal, currency string) (usd decimal.Decimal, known bool) {
	if strings.EqualFold(currency, BaseCurrency) {
		return amount, true
	}
	rate, known := c.Rates.Rate(currency)
	if !known {
		rate = decimal.NewFromInt(1)
	}
	return amount.Div(rate).Mul(decimal.NewFromInt(1).Sub(c.Spread)), known
}

// ParseAmount parses an API amount string. Empty input is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
