// Package services holds the earnings aggregation and order detail
// resolution logic.
package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/rates"
)

// TransactionSource lists the raw transactions initiated inside a window.
type TransactionSource interface {
	ListTransactions(ctx context.Context, w core.Window) ([]core.RawTransaction, error)
}

// EarningsOptions tunes the aggregation.
type EarningsOptions struct {
	Spread decimal.Decimal
	// SkipUnknownPayer drops records whose customer name is the "unknown"
	// sentinel. They are treated as internal transfers.
	SkipUnknownPayer bool
	Now              func() time.Time
}

// DefaultEarningsOptions returns the production settings.
func DefaultEarningsOptions() EarningsOptions {
	return EarningsOptions{
		Spread:           core.DefaultConversionSpread,
		SkipUnknownPayer: true,
		Now:              time.Now,
	}
}

// EarningsService builds earnings reports from the payments API.
type EarningsService struct {
	source TransactionSource
	rates  rates.Provider
	opts   EarningsOptions
	logger *log.Logger
}

func NewEarningsService(source TransactionSource, provider rates.Provider, opts EarningsOptions, logger *log.Logger) *EarningsService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &EarningsService{
		source: source,
		rates:  provider,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentEarnings),
	}
}

// Aggregate fetches every transaction in the named range and returns the
// USD-normalized report. Any chunk failure aborts the whole run.
func (s *EarningsService) Aggregate(ctx context.Context, name core.RangeName) (*core.EarningsReport, error) {
	now := s.opts.Now().UTC()
	dr, err := core.ResolveRange(name, now)
	if err != nil {
		return nil, err
	}
	fields := log.NewFields().WithRange(string(dr.Name), dr.Start.String(), dr.End.String())

	windows := dr.FetchWindows(now)
	raw, err := s.fetchAll(ctx, windows)
	if err != nil {
		log.LogError(ctx, s.logger, "Earnings aggregation failed", err, log.OpFetch, fields)
		return nil, err
	}

	snap, err := s.rates.Get(ctx)
	if err != nil {
		log.LogError(ctx, s.logger, "Exchange rates unavailable", err, log.OpConvert, fields)
		return nil, err
	}

	b := newReportBuilder(dr, core.NewConverter(snap.Rates, s.opts.Spread), s.opts.SkipUnknownPayer)
	for _, tx := range raw {
		b.add(tx)
	}
	report := b.build()
	report.GeneratedAt = now
	report.RatesSource = snap.Source

	for code := range b.unknownCurrencies {
		s.logger.WarnContext(ctx, "Currency missing from rate table, converted at 1:1",
			log.FieldCurrency, code,
			log.FieldRatesSource, snap.Source)
	}

	s.logger.InfoContext(ctx, "Earnings aggregated",
		append(fields.ToSlice(),
			log.FieldChunks, len(windows),
			log.FieldCount, report.Summary.TransactionCount,
			"fetched", len(raw),
			"skipped_unknown_payer", b.skipped,
			log.FieldRatesSource, snap.Source)...)

	return &report, nil
}

// fetchAll queries every window concurrently. Each goroutine owns one slot
// of results; the merge happens after Wait in window order.
func (s *EarningsService) fetchAll(ctx context.Context, windows []core.Window) ([]core.RawTransaction, error) {
	results := make([][]core.RawTransaction, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			txs, err := s.source.ListTransactions(gctx, w)
			if err != nil {
				return err
			}
			results[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]core.RawTransaction, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

type countryBucket struct {
	amount decimal.Decimal
	count  int
}

// reportBuilder accumulates converted transactions into a report.
type reportBuilder struct {
	dr                core.DateRange
	conv              core.Converter
	skipUnknown       bool
	summary           core.Summary
	daily             map[string]decimal.Decimal
	countries         map[string]*countryBucket
	transactions      []core.Transaction
	unknownCurrencies map[string]struct{}
	skipped           int
}

func newReportBuilder(dr core.DateRange, conv core.Converter, skipUnknown bool) *reportBuilder {
	return &reportBuilder{
		dr:                dr,
		conv:              conv,
		skipUnknown:       skipUnknown,
		daily:             make(map[string]decimal.Decimal),
		countries:         make(map[string]*countryBucket),
		unknownCurrencies: make(map[string]struct{}),
	}
}

func (b *reportBuilder) add(raw core.RawTransaction) {
	if b.skipUnknown && raw.IsUnknownPayer() {
		b.skipped++
		return
	}

	gross, known := b.conv.ToUSD(raw.Gross, raw.Currency)
	fee, _ := b.conv.ToUSD(raw.Fee, raw.Currency)
	if !known {
		b.unknownCurrencies[raw.Currency] = struct{}{}
	}
	net := gross.Sub(fee)
	day := utcDay(raw)

	b.transactions = append(b.transactions, core.Transaction{
		ID:            raw.ID,
		Timestamp:     raw.Timestamp,
		Date:          day,
		Status:        raw.Status,
		Currency:      raw.Currency,
		Gross:         raw.Gross,
		Fee:           raw.Fee,
		GrossUSD:      gross,
		FeeUSD:        fee,
		NetUSD:        net,
		CustomerName:  raw.CustomerName,
		CustomerEmail: raw.CustomerEmail,
		CountryCode:   raw.CountryCode,
	})

	if !gross.IsPositive() {
		return
	}

	b.summary.GrossTotal = b.summary.GrossTotal.Add(gross)
	b.summary.FeeTotal = b.summary.FeeTotal.Add(fee)
	b.summary.NetTotal = b.summary.NetTotal.Add(net)
	b.summary.TransactionCount++

	if b.dr.Contains(day) {
		key := day.String()
		b.daily[key] = b.daily[key].Add(gross)
	}

	country := raw.CountryCode
	if country == "" {
		country = core.UnknownCountry
	}
	bucket, ok := b.countries[country]
	if !ok {
		bucket = &countryBucket{}
		b.countries[country] = bucket
	}
	bucket.amount = bucket.amount.Add(gross)
	bucket.count++
}

// utcDay buckets by the UTC calendar day so transactions land on the same
// days the fetch windows cover.
func utcDay(raw core.RawTransaction) core.Date {
	if raw.Timestamp.IsZero() {
		return raw.Day
	}
	return core.DateOf(raw.Timestamp.UTC())
}

func (b *reportBuilder) build() core.EarningsReport {
	summary := b.summary
	if summary.TransactionCount > 0 {
		summary.AvgTicket = summary.GrossTotal.Div(decimal.NewFromInt(int64(summary.TransactionCount)))
	}

	daily := make([]core.DailyPoint, 0, b.dr.Days())
	for d := b.dr.Start; !d.After(b.dr.End.Time); d = d.AddDays(1) {
		daily = append(daily, core.DailyPoint{Date: d, Amount: b.daily[d.String()]})
	}

	countries := make([]core.CountryAmount, 0, len(b.countries))
	for code, bucket := range b.countries {
		countries = append(countries, core.CountryAmount{Country: code, Amount: bucket.amount, Count: bucket.count})
	}
	sort.Slice(countries, func(i, j int) bool {
		if c := countries[i].Amount.Cmp(countries[j].Amount); c != 0 {
			return c > 0
		}
		return countries[i].Country < countries[j].Country
	})

	txs := b.transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})

	return core.EarningsReport{
		DateRange:    b.dr,
		Summary:      summary,
		Daily:        daily,
		Countries:    countries,
		Transactions: txs,
	}
}
