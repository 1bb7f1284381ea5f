package paypal

import (
	"context"

	"ferrer/internal/core"
)

// Unavailable stands in for a Client when credentials are missing so the
// server can still start. Every call returns Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) ListTransactions(context.Context, core.Window) ([]core.RawTransaction, error) {
	return nil, u.Err
}

func (u Unavailable) GetCapture(context.Context, string) (map[string]any, error) { return nil, u.Err }

func (u Unavailable) GetOrder(context.Context, string) (map[string]any, error) { return nil, u.Err }

func (u Unavailable) GetSale(context.Context, string) (map[string]any, error) { return nil, u.Err }
