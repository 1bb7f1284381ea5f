package paypal

import (
	"context"
	"net/url"
	"strings"

	"ferrer/internal/core"
)

const (
	capturesPath = "/v2/payments/captures/"
	ordersPath   = "/v2/checkout/orders/"
	salesPath    = "/v1/payments/sale/"
)

// GetCapture fetches a v2 payment capture.
func (c *Client) GetCapture(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, capturesPath, id)
}

// GetOrder fetches a v2 checkout order.
func (c *Client) GetOrder(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, ordersPath, id)
}

// GetSale fetches a legacy v1 sale.
func (c *Client) GetSale(ctx context.Context, id string) (map[string]any, error) {
	return c.getObject(ctx, salesPath, id)
}

func (c *Client) getObject(ctx context.Context, prefix, id string) (map[string]any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.ErrEmptyID
	}
	var out map[string]any
	if err := c.getJSON(ctx, prefix+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
