package sheets

import (
	"fmt"
	"time"

	"ferrer/internal/core"
)

// TransactionHeader is the header row of the transaction table.
var TransactionHeader = []any{
	"Date", "Transaction ID", "Customer", "Country", "Currency",
	"Gross", "Fee", "Gross USD", "Fee USD", "Net USD", "Status",
}

// SheetTitle names the tab a report is written to.
func SheetTitle(base string, r *core.EarningsReport) string {
	return fmt.Sprintf("%s %s", base, r.Name)
}

// ReportRows lays a report out as spreadsheet rows: a summary block, a blank
// row, then the transaction table.
func ReportRows(r *core.EarningsReport) [][]any {
	s := r.Summary
	rows := [][]any{
		{"Range", string(r.Name), r.Start.String(), r.End.String()},
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339), "Rates", r.RatesSource},
		{"Gross USD", s.GrossTotal.StringFixed(2)},
		{"Fees USD", s.FeeTotal.StringFixed(2)},
		{"Net USD", s.NetTotal.StringFixed(2)},
		{"Transactions", s.TransactionCount},
		{"Average ticket USD", s.AvgTicket.StringFixed(2)},
		{},
		TransactionHeader,
	}
	for _, tx := range r.Transactions {
		rows = append(rows, []any{
			tx.Date.String(),
			tx.ID,
			tx.CustomerName,
			tx.CountryCode,
			tx.Currency,
			tx.Gross.StringFixed(2),
			tx.Fee.StringFixed(2),
			tx.GrossUSD.StringFixed(2),
			tx.FeeUSD.StringFixed(2),
			tx.NetUSD.StringFixed(2),
			tx.Status,
		})
	}
	return rows
}
