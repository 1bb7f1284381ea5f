// Command paypal-check verifies PayPal credentials by fetching a token and
// running a one-day reporting query.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ferrer/internal/cli"
	"ferrer/internal/config"
	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/paypal"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	day := flag.String("day", "", "day to query (YYYY-MM-DD, default yesterday UTC)")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentPayPal)

	if err := run(cfg, logger, *timeout, *day); err != nil {
		fmt.Fprintf(os.Stderr, "paypal-check: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger, timeout time.Duration, day string) error {
	client, err := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Timeout:      timeout,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tok, err := client.Token(ctx)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Printf("token ok: type=%s expires=%s (in %s)\n",
		tok.TokenType, tok.Expiry.Format(time.RFC3339), time.Until(tok.Expiry).Round(time.Second))

	d := core.DateOf(time.Now().UTC()).AddDays(-1)
	if day != "" {
		if d, err = core.ParseDate(day); err != nil {
			return fmt.Errorf("parse -day: %w", err)
		}
	}
	window := core.DateRange{Start: d, End: d}.Chunks(1)[0]

	txs, err := client.ListTransactions(ctx, window)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	fmt.Printf("reporting ok: %s %d transactions\n", d, len(txs))
	return nil
}
