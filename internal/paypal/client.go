// Package paypal talks to the PayPal REST API: the transaction reporting
// search used for earnings and the capture, order and sale detail lookups.
package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"ferrer/internal/core"
	"ferrer/internal/log"
)

const (
	tokenPath       = "/v1/oauth2/token"
	maxErrorBody    = 64 << 10
	defaultPageSize = 500
)

// Config holds what is needed to reach the API.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PageSize     int
	Timeout      time.Duration
	// HTTPClient is the transport used for both token and API calls.
	// Defaults to a client with Timeout.
	HTTPClient *http.Client
}

// Client is safe for concurrent use; the bearer token is cached and
// refreshed by the oauth2 transport.
type Client struct {
	baseURL  string
	pageSize int
	creds    *clientcredentials.Config
	base     *http.Client
	http     *http.Client
	logger   *log.Logger
}

// NewClient validates cfg and builds an authenticated client. Missing
// credentials or base URL yield a *core.ConfigError.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, &core.ConfigError{Field: "PAYPAL_BASE_URL"}
	case cfg.ClientID == "":
		return nil, &core.ConfigError{Field: "PAYPAL_CLIENT_ID"}
	case cfg.ClientSecret == "":
		return nil, &core.ConfigError{Field: "PAYPAL_CLIENT_SECRET"}
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, &core.ConfigError{Field: "PAYPAL_BASE_URL"}
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = log.Discard()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &Client{
		baseURL:  baseURL,
		pageSize: cfg.PageSize,
		creds:    creds,
		base:     base,
		http:     creds.Client(tokenCtx),
		logger:   logger.WithComponent(log.ComponentPayPal),
	}, nil
}

// Token fetches a fresh access token. Used by diagnostics.
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.base))
	if err != nil {
		return nil, c.wrapTransportError(tokenPath, err)
	}
	return tok, nil
}

// getJSON performs an authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.wrapTransportError(path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "PayPal request completed",
		log.FieldEndpoint, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &core.FetchError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.FetchError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// wrapTransportError converts client and token failures into FetchErrors,
// keeping the token endpoint status when the credential exchange failed.
func (c *Client) wrapTransportError(path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return &core.FetchError{Endpoint: tokenPath, StatusCode: rerr.Response.StatusCode, Body: string(rerr.Body)}
	}
	return &core.FetchError{Endpoint: path, Err: err}
}
