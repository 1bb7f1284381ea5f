package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ferrer/internal/core"
	"ferrer/internal/rates"
)

type mockSource struct {
	mock.Mock
	mu      sync.Mutex
	windows []core.Window
}

func (m *mockSource) ListTransactions(ctx context.Context, w core.Window) ([]core.RawTransaction, error) {
	m.mu.Lock()
	m.windows = append(m.windows, w)
	m.mu.Unlock()
	args := m.Called(ctx, w)
	if txs := args.Get(0); txs != nil {
		return txs.([]core.RawTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

type staticRates struct {
	snap rates.Snapshot
	err  error
}

func (s staticRates) Get(context.Context) (rates.Snapshot, error)     { return s.snap, s.err }
func (s staticRates) Refresh(context.Context) (rates.Snapshot, error) { return s.snap, s.err }

func eurRates() staticRates {
	return staticRates{snap: rates.Snapshot{
		Base:   "USD",
		Source: rates.SourceLive,
		Rates:  core.RateTable{"USD": decimal.NewFromInt(1), "EUR": decimal.RequireFromString("0.92")},
	}}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rawTx(id string, ts time.Time, gross, fee, currency, name, country string) core.RawTransaction {
	return core.RawTransaction{
		ID:           id,
		Timestamp:    ts,
		Day:          core.DateOf(ts),
		Status:       "S",
		Gross:        d(gross),
		Fee:          d(fee),
		Currency:     currency,
		CustomerName: name,
		CountryCode:  country,
	}
}

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newService(src TransactionSource, provider rates.Provider) *EarningsService {
	opts := DefaultEarningsOptions()
	opts.Now = func() time.Time { return fixedNow }
	return NewEarningsService(src, provider, opts, nil)
}

func TestAggregateSummaryAndConversion(t *testing.T) {
	src := &mockSource{}
	txs := []core.RawTransaction{
		rawTx("A", fixedNow.Add(-48*time.Hour), "100", "3", "USD", "Ana Silva", "US"),
		rawTx("B", fixedNow.Add(-24*time.Hour), "100", "0", "EUR", "Jean Dupont", "FR"),
		rawTx("C", fixedNow.Add(-12*time.Hour), "500", "0", "USD", core.UnknownPayer, "US"),
		rawTx("D", fixedNow.Add(-6*time.Hour), "-40", "0", "USD", "Ana Silva", "US"),
	}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return(txs, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)

	eurUSD := d("100").Div(d("0.92")).Mul(d("0.955"))
	wantGross := d("100").Add(eurUSD)

	assert.True(t, report.Summary.GrossTotal.Equal(wantGross), "gross = %s want %s", report.Summary.GrossTotal, wantGross)
	assert.Equal(t, "203.8", report.Summary.GrossTotal.Round(2).String())
	assert.True(t, report.Summary.FeeTotal.Equal(d("3")))
	assert.True(t, report.Summary.NetTotal.Equal(wantGross.Sub(d("3"))))
	assert.Equal(t, 2, report.Summary.TransactionCount)
	assert.True(t, report.Summary.AvgTicket.Equal(wantGross.Div(d("2"))))
	assert.Equal(t, rates.SourceLive, report.RatesSource)

	// The sentinel payer is dropped entirely; the refund stays in the list.
	ids := make([]string, 0, len(report.Transactions))
	for _, tx := range report.Transactions {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"D", "B", "A"}, ids, "transactions sorted by date descending")

	var usdA core.Transaction
	for _, tx := range report.Transactions {
		if tx.ID == "A" {
			usdA = tx
		}
	}
	assert.True(t, usdA.GrossUSD.Equal(d("100")), "USD amounts are unchanged by conversion")
}

func TestAggregateDailySeriesIsDense(t *testing.T) {
	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("A", fixedNow.Add(-24*time.Hour), "10", "0", "USD", "Ana", "US"),
		rawTx("B", fixedNow.Add(-24*time.Hour), "5", "0", "USD", "Bia", "BR"),
	}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)

	require.Len(t, report.Daily, report.Days())
	assert.Equal(t, report.Start.String(), report.Daily[0].Date.String())
	assert.Equal(t, report.End.String(), report.Daily[len(report.Daily)-1].Date.String())

	sum := decimal.Zero
	for _, p := range report.Daily {
		sum = sum.Add(p.Amount)
		if p.Date.String() == "2025-03-14" {
			assert.True(t, p.Amount.Equal(d("15")))
		}
	}
	assert.True(t, sum.Equal(report.Summary.GrossTotal))
}

func TestAggregateCountryBreakdown(t *testing.T) {
	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("A", fixedNow.Add(-time.Hour), "10", "0", "USD", "Ana", "BR"),
		rawTx("B", fixedNow.Add(-time.Hour), "50", "0", "USD", "Bob", "US"),
		rawTx("C", fixedNow.Add(-time.Hour), "30", "0", "USD", "Cid", "BR"),
		rawTx("D", fixedNow.Add(-time.Hour), "5", "0", "USD", "Dee", ""),
	}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)

	require.Len(t, report.Countries, 3)
	assert.Equal(t, "US", report.Countries[0].Country)
	assert.Equal(t, "BR", report.Countries[1].Country)
	assert.Equal(t, 2, report.Countries[1].Count)
	assert.Equal(t, core.UnknownCountry, report.Countries[2].Country)

	sum := decimal.Zero
	for _, c := range report.Countries {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(report.Summary.GrossTotal), "country amounts sum to gross total")
}

func TestAggregateEmpty(t *testing.T) {
	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range90Days)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.TransactionCount)
	assert.True(t, report.Summary.AvgTicket.IsZero())
	assert.NotNil(t, report.Transactions)
	assert.Empty(t, report.Countries)
	assert.Len(t, report.Daily, 91)
}

func TestAggregateChunking(t *testing.T) {
	cases := []struct {
		name   core.RangeName
		chunks int
	}{
		{core.Range30Days, 1},
		{core.Range90Days, 3},
		{core.RangeYTD, 3},
		{core.RangeOneYear, 3},
	}
	for _, tc := range cases {
		t.Run(string(tc.name), func(t *testing.T) {
			src := &mockSource{}
			src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{}, nil)

			_, err := newService(src, eurRates()).Aggregate(context.Background(), tc.name)
			require.NoError(t, err)
			src.AssertNumberOfCalls(t, "ListTransactions", tc.chunks)
			for _, w := range src.windows {
				assert.False(t, w.End.After(fixedNow), "window end must not be in the future")
			}
		})
	}
}

func TestAggregateFailsFast(t *testing.T) {
	src := &mockSource{}
	upstream := &core.FetchError{Endpoint: "/v1/reporting/transactions", StatusCode: http.StatusBadGateway, Body: "bad gateway"}
	src.On("ListTransactions", mock.Anything, mock.MatchedBy(func(w core.Window) bool {
		return w.Start.Month() == time.January
	})).Return(nil, upstream)
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("A", fixedNow, "10", "0", "USD", "Ana", "US"),
	}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.RangeYTD)
	assert.Nil(t, report, "no partial results")

	var ferr *core.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusBadGateway, ferr.StatusCode)
}

func TestAggregateAbortsOnMalformedRecord(t *testing.T) {
	src := &mockSource{}
	parseErr := &core.FetchError{
		Endpoint:   "/v1/reporting/transactions",
		StatusCode: http.StatusOK,
		Err:        errors.New("parse transaction BAD: can't convert 1,000.00 to decimal"),
	}
	src.On("ListTransactions", mock.Anything, mock.MatchedBy(func(w core.Window) bool {
		return w.Start.Month() == time.February
	})).Return(nil, parseErr)
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("A", fixedNow, "10", "0", "USD", "Ana", "US"),
	}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.RangeYTD)
	assert.Nil(t, report)
	require.ErrorIs(t, err, parseErr)
	assert.Contains(t, err.Error(), "parse transaction BAD")
}

func TestAggregateBucketsDaysInUTC(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	// 2025-02-12 22:30 in Sao Paulo is 2025-02-13 01:30 UTC, the first day of the 30d range.
	edge := time.Date(2025, 2, 12, 22, 30, 0, 0, brt)
	tx := rawTx("EDGE", edge, "20", "0", "USD", "Ana", "BR")

	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{tx}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)

	assert.Equal(t, "2025-02-13", report.Start.String())
	sum := decimal.Zero
	for _, p := range report.Daily {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(report.Summary.GrossTotal), "daily series sums to gross")
	assert.True(t, report.Daily[0].Amount.Equal(d("20")))
	assert.Equal(t, "2025-02-13", report.Transactions[0].Date.String())
}

func TestAggregateInvalidRange(t *testing.T) {
	_, err := newService(&mockSource{}, eurRates()).Aggregate(context.Background(), "7d")
	assert.True(t, errors.Is(err, core.ErrInvalidRange))
}

func TestAggregateKeepsUnknownPayerWhenDisabled(t *testing.T) {
	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("C", fixedNow, "500", "0", "USD", core.UnknownPayer, "US"),
	}, nil)

	opts := DefaultEarningsOptions()
	opts.Now = func() time.Time { return fixedNow }
	opts.SkipUnknownPayer = false
	report, err := NewEarningsService(src, eurRates(), opts, nil).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TransactionCount)
}

func TestAggregateUnknownCurrencyUsesUnitRate(t *testing.T) {
	src := &mockSource{}
	src.On("ListTransactions", mock.Anything, mock.Anything).Return([]core.RawTransaction{
		rawTx("J", fixedNow, "1000", "0", "JPY", "Ken", "JP"),
	}, nil)

	report, err := newService(src, eurRates()).Aggregate(context.Background(), core.Range30Days)
	require.NoError(t, err)
	assert.True(t, report.Summary.GrossTotal.Equal(d("955")))
}
