package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Range30Days  RangeName = "30d"
	Range90Days  RangeName = "90d"
	RangeYTD     RangeName = "ytd"
	RangeOneYear RangeName = "1y"

	DefaultRange   = Range30Days
	UnknownPayer   = "unknown"
	UnknownCountry = "Unknown"
	BaseCurrency   = "USD"
	dateLayout     = "2006-01-02"
)

type (
	RangeName string

	// Date is a calendar day in UTC.
	Date struct {
		time.Time
	}

	// RawTransaction is a single payment as reported by the payments API,
	// in its original currency.
	RawTransaction struct {
		ID            string
		Timestamp     time.Time
		Day           Date
		Status        string
		Gross         decimal.Decimal
		Fee           decimal.Decimal
		Currency      string
		CustomerName  string
		CustomerEmail string
		CountryCode   string
	}

	// Transaction is a RawTransaction normalized to USD.
	Transaction struct {
		ID            string          `json:"id"`
		Timestamp     time.Time       `json:"timestamp"`
		Date          Date            `json:"date"`
		Status        string          `json:"status"`
		Currency      string          `json:"currency"`
		Gross         decimal.Decimal `json:"gross"`
		Fee           decimal.Decimal `json:"fee"`
		GrossUSD      decimal.Decimal `json:"gross_usd"`
		FeeUSD        decimal.Decimal `json:"fee_usd"`
		NetUSD        decimal.Decimal `json:"net_usd"`
		CustomerName  string          `json:"customer_name"`
		CustomerEmail string          `json:"customer_email,omitempty"`
		CountryCode   string          `json:"country_code"`
	}
)

var (
	ErrInvalidRange  = errors.New("invalid range")
	ErrNoRates       = errors.New("no exchange rates available")
	ErrEmptyID       = errors.New("empty identifier")
	ErrInvalidAmount = errors.New("invalid amount")
)

// ParseRangeName normalizes user input. An empty string maps to DefaultRange.
func ParseRangeName(s string) (RangeName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRange, nil
	}
	switch r := RangeName(s); r {
	case Range30Days, Range90Days, RangeYTD, RangeOneYear:
		return r, nil
	}
	return "", ErrInvalidRange
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsUnknownPayer reports whether the record carries the sentinel name used
// for internal transfers and balance movements.
func (t RawTransaction) IsUnknownPayer() bool {
	return t.CustomerName == UnknownPayer
}

func (t RawTransaction) Net() decimal.Decimal {
	return t.Gross.Sub(t.Fee)
}
