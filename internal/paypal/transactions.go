package paypal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ferrer/internal/core"
	"ferrer/internal/log"
)

const (
	transactionsPath = "/v1/reporting/transactions"
	paypalTimeLayout = "2006-01-02T15:04:05-0700"
)

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type transactionDetail struct {
	TransactionInfo struct {
		TransactionID             string `json:"transaction_id"`
		TransactionInitiationDate string `json:"transaction_initiation_date"`
		TransactionStatus         string `json:"transaction_status"`
		TransactionAmount         money  `json:"transaction_amount"`
		FeeAmount                 *money `json:"fee_amount"`
	} `json:"transaction_info"`
	PayerInfo struct {
		EmailAddress string `json:"email_address"`
		CountryCode  string `json:"country_code"`
		PayerName    struct {
			GivenName         string `json:"given_name"`
			Surname           string `json:"surname"`
			AlternateFullName string `json:"alternate_full_name"`
		} `json:"payer_name"`
	} `json:"payer_info"`
	ShippingInfo struct {
		Name    string `json:"name"`
		Address struct {
			CountryCode string `json:"country_code"`
		} `json:"address"`
	} `json:"shipping_info"`
}

type transactionsPage struct {
	TransactionDetails []transactionDetail `json:"transaction_details"`
	Page               int                 `json:"page"`
	TotalPages         int                 `json:"total_pages"`
	TotalItems         int                 `json:"total_items"`
}

// ListTransactions returns every transaction initiated inside w, following
// pagination sequentially.
func (c *Client) ListTransactions(ctx context.Context, w core.Window) ([]core.RawTransaction, error) {
	var out []core.RawTransaction
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("start_date", w.Start.UTC().Format(time.RFC3339))
		q.Set("end_date", w.End.UTC().Format(time.RFC3339))
		q.Set("fields", "all")
		q.Set("page_size", strconv.Itoa(c.pageSize))
		q.Set("page", strconv.Itoa(page))

		var resp transactionsPage
		if err := c.getJSON(ctx, transactionsPath, q, &resp); err != nil {
			return nil, err
		}

		for _, d := range resp.TransactionDetails {
			tx, err := d.toRaw()
			if err != nil {
				return nil, &core.FetchError{
					Endpoint:   transactionsPath,
					StatusCode: http.StatusOK,
					Err:        fmt.Errorf("parse transaction %s: %w", d.TransactionInfo.TransactionID, err),
				}
			}
			out = append(out, tx)
		}

		if page >= resp.TotalPages {
			break
		}
	}

	c.logger.DebugContext(ctx, "Fetched transaction window",
		log.FieldStartDate, w.Start.Format(time.DateOnly),
		log.FieldEndDate, w.End.Format(time.DateOnly),
		log.FieldCount, len(out))
	return out, nil
}

func (d transactionDetail) toRaw() (core.RawTransaction, error) {
	info := d.TransactionInfo
	ts, err := parseTimestamp(info.TransactionInitiationDate)
	if err != nil {
		return core.RawTransaction{}, err
	}
	gross, err := core.ParseAmount(info.TransactionAmount.Value)
	if err != nil {
		return core.RawTransaction{}, err
	}
	tx := core.RawTransaction{
		ID:            info.TransactionID,
		Timestamp:     ts,
		Day:           core.DateOf(ts.UTC()),
		Status:        info.TransactionStatus,
		Gross:         gross,
		Currency:      strings.ToUpper(info.TransactionAmount.CurrencyCode),
		CustomerName:  d.customerName(),
		CustomerEmail: d.PayerInfo.EmailAddress,
		CountryCode:   d.countryCode(),
	}
	if info.FeeAmount != nil {
		fee, err := core.ParseAmount(info.FeeAmount.Value)
		if err != nil {
			return core.RawTransaction{}, err
		}
		tx.Fee = fee.Abs()
	}
	return tx, nil
}

func (d transactionDetail) customerName() string {
	n := d.PayerInfo.PayerName
	if name := strings.TrimSpace(n.AlternateFullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(n.GivenName + " " + n.Surname); name != "" {
		return name
	}
	if name := strings.TrimSpace(d.ShippingInfo.Name); name != "" {
		return name
	}
	return core.UnknownPayer
}

func (d transactionDetail) countryCode() string {
	if cc := d.PayerInfo.CountryCode; cc != "" {
		return strings.ToUpper(cc)
	}
	if cc := d.ShippingInfo.Address.CountryCode; cc != "" {
		return strings.ToUpper(cc)
	}
	return core.UnknownCountry
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(paypalTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
