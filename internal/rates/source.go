package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ferrer/internal/core"
)

// HTTPSource reads a USD-based table from an open exchange-rate endpoint
// shaped like {"result":"success","base_code":"USD","rates":{"EUR":0.92}}.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Name() string { return "http" }

type ratesResponse struct {
	Result   string                 `json:"result"`
	BaseCode string                 `json:"base_code"`
	Rates    map[string]json.Number `json:"rates"`
}

func (s *HTTPSource) Fetch(ctx context.Context) (core.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &core.FetchError{Endpoint: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &core.FetchError{Endpoint: s.url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload ratesResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	if payload.Result != "" && payload.Result != "success" {
		return nil, fmt.Errorf("rates endpoint returned result %q", payload.Result)
	}
	if payload.BaseCode != "" && !strings.EqualFold(payload.BaseCode, core.BaseCurrency) {
		return nil, fmt.Errorf("rates endpoint returned base %q, want %s", payload.BaseCode, core.BaseCurrency)
	}

	table := make(core.RateTable, len(payload.Rates))
	for code, n := range payload.Rates {
		d, err := decimal.NewFromString(n.String())
		if err != nil || !d.IsPositive() {
			continue
		}
		table[strings.ToUpper(code)] = d
	}
	if len(table) == 0 {
		return nil, core.ErrNoRates
	}
	table[core.BaseCurrency] = decimal.NewFromInt(1)
	return table, nil
}
