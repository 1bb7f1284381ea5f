package services

import (
	"context"
	"errors"
	"maps"
	"strings"

	"ferrer/internal/core"
	"ferrer/internal/log"
)

// Detail kinds reported in core.OrderDetail.Kind.
const (
	KindCapture = "capture"
	KindOrder   = "order"
	KindSale    = "sale"
)

// DetailFetcher retrieves raw payment objects by identifier.
type DetailFetcher interface {
	GetCapture(ctx context.Context, id string) (map[string]any, error)
	GetOrder(ctx context.Context, id string) (map[string]any, error)
	GetSale(ctx context.Context, id string) (map[string]any, error)
}

// DetailLookupStrategy resolves an identifier as one specific kind of
// payment object. Strategies are tried in order until one succeeds.
type DetailLookupStrategy interface {
	Name() string
	Lookup(ctx context.Context, id string) (*core.OrderDetail, error)
}

// CaptureLookup treats the identifier as a capture and enriches it with
// its parent order when one is referenced.
type CaptureLookup struct {
	fetcher DetailFetcher
	logger  *log.Logger
}

func (CaptureLookup) Name() string { return KindCapture }

func (l CaptureLookup) Lookup(ctx context.Context, id string) (*core.OrderDetail, error) {
	capture, err := l.fetcher.GetCapture(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &core.OrderDetail{ID: id, Kind: KindCapture, Payload: capture}

	orderID := relatedOrderID(capture)
	if orderID == "" {
		return detail, nil
	}
	detail.OrderID = orderID

	order, err := l.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		l.logger.WarnContext(ctx, "Parent order lookup failed, returning capture only",
			log.FieldDetailID, id,
			"order_id", orderID,
			log.FieldError, err)
		return detail, nil
	}

	detail.Payload = mergeCaptureIntoOrder(order, capture)
	detail.Enriched = true
	return detail, nil
}

// OrderLookup treats the identifier as a checkout order.
type OrderLookup struct {
	fetcher DetailFetcher
}

func (OrderLookup) Name() string { return KindOrder }

func (l OrderLookup) Lookup(ctx context.Context, id string) (*core.OrderDetail, error) {
	order, err := l.fetcher.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &core.OrderDetail{ID: id, Kind: KindOrder, OrderID: id, Payload: order}, nil
}

// SaleLookup treats the identifier as a legacy v1 sale.
type SaleLookup struct {
	fetcher DetailFetcher
}

func (SaleLookup) Name() string { return KindSale }

func (l SaleLookup) Lookup(ctx context.Context, id string) (*core.OrderDetail, error) {
	sale, err := l.fetcher.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return &core.OrderDetail{ID: id, Kind: KindSale, Payload: sale}, nil
}

// DefaultStrategies returns capture, order and sale lookups in that order.
func DefaultStrategies(fetcher DetailFetcher, logger *log.Logger) []DetailLookupStrategy {
	if logger == nil {
		logger = log.Discard()
	}
	return []DetailLookupStrategy{
		CaptureLookup{fetcher: fetcher, logger: logger.WithComponent(log.ComponentOrders)},
		OrderLookup{fetcher: fetcher},
		SaleLookup{fetcher: fetcher},
	}
}

// OrderResolver tries each strategy until one returns a detail.
type OrderResolver struct {
	strategies []DetailLookupStrategy
	logger     *log.Logger
}

func NewOrderResolver(logger *log.Logger, strategies ...DetailLookupStrategy) *OrderResolver {
	if logger == nil {
		logger = log.Discard()
	}
	return &OrderResolver{
		strategies: strategies,
		logger:     logger.WithComponent(log.ComponentOrders),
	}
}

// Strategies returns the configured strategy names in lookup order.
func (r *OrderResolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first successful lookup. When every strategy fails
// the result is a *core.NotFoundError listing each attempt's HTTP status.
func (r *OrderResolver) Resolve(ctx context.Context, id string) (*core.OrderDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.ErrEmptyID
	}

	attempts := make([]core.LookupAttempt, 0, len(r.strategies))
	for _, strategy := range r.strategies {
		detail, err := strategy.Lookup(ctx, id)
		if err == nil {
			r.logger.DebugContext(ctx, "Detail resolved",
				log.FieldDetailID, id,
				log.FieldStrategy, strategy.Name())
			return detail, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Missing credentials fail every strategy the same way.
		var cfgErr *core.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}

		attempt := core.LookupAttempt{Strategy: strategy.Name()}
		var ferr *core.FetchError
		if errors.As(err, &ferr) {
			attempt.StatusCode = ferr.StatusCode
		}
		attempts = append(attempts, attempt)

		r.logger.DebugContext(ctx, "Detail lookup strategy failed",
			log.FieldDetailID, id,
			log.FieldStrategy, strategy.Name(),
			log.FieldStatusCode, attempt.StatusCode,
			log.FieldError, err)
	}

	nf := &core.NotFoundError{ID: id, Attempts: attempts}
	r.logger.WarnContext(ctx, "Detail not found by any strategy",
		log.FieldDetailID, id,
		log.FieldError, nf)
	return nil, nf
}

// relatedOrderID reads supplementary_data.related_ids.order_id.
func relatedOrderID(capture map[string]any) string {
	supp, _ := capture["supplementary_data"].(map[string]any)
	related, _ := supp["related_ids"].(map[string]any)
	id, _ := related["order_id"].(string)
	return id
}

// mergeCaptureIntoOrder overlays capture fields on the order payload.
// Capture values win on key collisions.
func mergeCaptureIntoOrder(order, capture map[string]any) map[string]any {
	merged := make(map[string]any, len(order)+len(capture)+2)
	maps.Copy(merged, order)
	maps.Copy(merged, capture)
	if orderID, ok := order["id"]; ok {
		merged["order_id"] = orderID
	}
	if captureID, ok := capture["id"]; ok {
		merged["capture_id"] = captureID
	}
	return merged
}
