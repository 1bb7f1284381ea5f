package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ferrer/internal/core"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) GetCapture(ctx context.Context, id string) (map[string]any, error) {
	args := m.MethodCalled("GetCapture", ctx, id)
	return payload(args)
}

func (m *mockFetcher) GetOrder(ctx context.Context, id string) (map[string]any, error) {
	args := m.MethodCalled("GetOrder", ctx, id)
	return payload(args)
}

func (m *mockFetcher) GetSale(ctx context.Context, id string) (map[string]any, error) {
	args := m.MethodCalled("GetSale", ctx, id)
	return payload(args)
}

func payload(args mock.Arguments) (map[string]any, error) {
	if v := args.Get(0); v != nil {
		return v.(map[string]any), args.Error(1)
	}
	return nil, args.Error(1)
}

func notFound(path string) error {
	return &core.FetchError{Endpoint: path, StatusCode: http.StatusNotFound, Body: `{"name":"RESOURCE_NOT_FOUND"}`}
}

func newResolver(f DetailFetcher) *OrderResolver {
	return NewOrderResolver(nil, DefaultStrategies(f, nil)...)
}

func TestResolveCaptureEnrichedWithOrder(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "CAP-1").Return(map[string]any{
		"id":     "CAP-1",
		"status": "COMPLETED",
		"amount": map[string]any{"value": "10.00", "currency_code": "USD"},
		"supplementary_data": map[string]any{
			"related_ids": map[string]any{"order_id": "ORD-9"},
		},
	}, nil)
	f.On("GetOrder", mock.Anything, "ORD-9").Return(map[string]any{
		"id":             "ORD-9",
		"status":         "APPROVED",
		"amount":         map[string]any{"value": "99.00"},
		"purchase_units": []any{map[string]any{"reference_id": "default"}},
	}, nil)

	detail, err := newResolver(f).Resolve(context.Background(), "CAP-1")
	require.NoError(t, err)

	assert.Equal(t, KindCapture, detail.Kind)
	assert.Equal(t, "ORD-9", detail.OrderID)
	assert.True(t, detail.Enriched)
	assert.Equal(t, "COMPLETED", detail.Payload["status"], "capture fields take precedence")
	assert.Equal(t, "10.00", detail.Payload["amount"].(map[string]any)["value"])
	assert.Contains(t, detail.Payload, "purchase_units")
	assert.Equal(t, "CAP-1", detail.Payload["capture_id"])
	assert.Equal(t, "ORD-9", detail.Payload["order_id"])
	f.AssertNotCalled(t, "GetSale", mock.Anything, mock.Anything)
}

func TestResolveCaptureWithoutParentOrder(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "CAP-2").Return(map[string]any{"id": "CAP-2"}, nil)

	detail, err := newResolver(f).Resolve(context.Background(), "CAP-2")
	require.NoError(t, err)
	assert.False(t, detail.Enriched)
	assert.Empty(t, detail.OrderID)
	f.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestResolveCaptureParentOrderFails(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "CAP-3").Return(map[string]any{
		"id":                 "CAP-3",
		"supplementary_data": map[string]any{"related_ids": map[string]any{"order_id": "ORD-X"}},
	}, nil)
	f.On("GetOrder", mock.Anything, "ORD-X").Return(nil, &core.FetchError{StatusCode: http.StatusInternalServerError})

	detail, err := newResolver(f).Resolve(context.Background(), "CAP-3")
	require.NoError(t, err)
	assert.Equal(t, KindCapture, detail.Kind)
	assert.False(t, detail.Enriched)
	assert.Equal(t, "CAP-3", detail.Payload["id"])
}

func TestResolveFallsBackToOrder(t *testing.T) {
	order := map[string]any{"id": "ORD-1", "status": "COMPLETED"}
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "ORD-1").Return(nil, notFound("/v2/payments/captures/ORD-1"))
	f.On("GetOrder", mock.Anything, "ORD-1").Return(order, nil)

	detail, err := newResolver(f).Resolve(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, KindOrder, detail.Kind)
	assert.Equal(t, order, detail.Payload, "order payload is returned unmodified")
}

func TestResolveFallsBackToSale(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "PAY-1").Return(nil, notFound("captures"))
	f.On("GetOrder", mock.Anything, "PAY-1").Return(nil, notFound("orders"))
	f.On("GetSale", mock.Anything, "PAY-1").Return(map[string]any{"id": "PAY-1", "state": "completed"}, nil)

	detail, err := newResolver(f).Resolve(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, KindSale, detail.Kind)
}

func TestResolveNotFoundListsAttempts(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "NOPE").Return(nil, notFound("captures"))
	f.On("GetOrder", mock.Anything, "NOPE").Return(nil, &core.FetchError{StatusCode: http.StatusUnprocessableEntity})
	f.On("GetSale", mock.Anything, "NOPE").Return(nil, &core.FetchError{Err: errors.New("connection reset")})

	_, err := newResolver(f).Resolve(context.Background(), "NOPE")

	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "NOPE", nf.ID)
	assert.Equal(t, []core.LookupAttempt{
		{Strategy: KindCapture, StatusCode: http.StatusNotFound},
		{Strategy: KindOrder, StatusCode: http.StatusUnprocessableEntity},
		{Strategy: KindSale, StatusCode: 0},
	}, nf.Attempts)
	assert.Contains(t, nf.Error(), "capture=404")
}

func TestResolveEmptyID(t *testing.T) {
	_, err := newResolver(&mockFetcher{}).Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrEmptyID)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "CAP-1").Run(func(mock.Arguments) { cancel() }).Return(nil, context.Canceled)

	_, err := newResolver(f).Resolve(ctx, "CAP-1")
	assert.ErrorIs(t, err, context.Canceled)
	f.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestResolveReturnsConfigErrorImmediately(t *testing.T) {
	f := &mockFetcher{}
	f.On("GetCapture", mock.Anything, "CAP-1").Return(nil, &core.ConfigError{Field: "PAYPAL_CLIENT_ID"})

	_, err := newResolver(f).Resolve(context.Background(), "CAP-1")
	var cfgErr *core.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "PAYPAL_CLIENT_ID", cfgErr.Field)
	f.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

type fixedStrategy struct {
	name string
	err  error
}

func (s fixedStrategy) Name() string { return s.name }
func (s fixedStrategy) Lookup(_ context.Context, id string) (*core.OrderDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &core.OrderDetail{ID: id, Kind: s.name}, nil
}

func TestResolverAcceptsCustomStrategies(t *testing.T) {
	r := NewOrderResolver(nil,
		fixedStrategy{name: "invoice", err: notFound("invoices")},
		fixedStrategy{name: "subscription"},
	)
	assert.Equal(t, []string{"invoice", "subscription"}, r.Strategies())

	detail, err := r.Resolve(context.Background(), "I-1")
	require.NoError(t, err)
	assert.Equal(t, "subscription", detail.Kind)
}
