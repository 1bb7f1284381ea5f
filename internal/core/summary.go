package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the headline figures of an earnings report, in USD.
type Summary struct {
	GrossTotal       decimal.Decimal `json:"gross_total"`
	FeeTotal         decimal.Decimal `json:"fee_total"`
	NetTotal         decimal.Decimal `json:"net_total"`
	TransactionCount int             `json:"transaction_count"`
	AvgTicket        decimal.Decimal `json:"avg_ticket"`
}

// DailyPoint is one entry of the dense daily series.
type DailyPoint struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount_usd"`
}

// CountryAmount aggregates gross USD by payer country.
type CountryAmount struct {
	Country string          `json:"country"`
	Amount  decimal.Decimal `json:"amount_usd"`
	Count   int             `json:"count"`
}

// EarningsReport is everything the dashboard needs for one range.
type EarningsReport struct {
	DateRange
	GeneratedAt  time.Time       `json:"generated_at"`
	RatesSource  string          `json:"rates_source"`
	Summary      Summary         `json:"summary"`
	Daily        []DailyPoint    `json:"daily"`
	Countries    []CountryAmount `json:"countries"`
	Transactions []Transaction   `json:"transactions"`
}

// OrderDetail is the payload returned by a detail lookup. Payload is the
// upstream JSON object; for captures it is merged with the parent order.
type OrderDetail struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	OrderID  string         `json:"order_id,omitempty"`
	Enriched bool           `json:"enriched"`
	Payload  map[string]any `json:"payload"`
}
