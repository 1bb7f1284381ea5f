package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldRange       = "range"
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldChunks      = "chunks"
	FieldEndpoint    = "endpoint"
	FieldCurrency    = "currency"
	FieldRatesSource = "rates_source"
	FieldDetailID    = "detail_id"
	FieldStrategy    = "strategy"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEarnings  = "earnings"
	ComponentOrders    = "orders"
	ComponentPayPal    = "paypal"
	ComponentRates     = "rates"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpAggregate = "aggregate"
	OpFetch     = "fetch"
	OpConvert   = "convert"
	OpResolve   = "resolve"
	OpRefresh   = "refresh"
	OpExport    = "export"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds the named range and its resolved bounds.
func (f LogFields) WithRange(name, start, end string) LogFields {
	f[FieldRange] = name
	f[FieldStartDate] = start
	f[FieldEndDate] = end
	return f
}

// WithUpstream adds the endpoint and status code of an upstream call.
func (f LogFields) WithUpstream(endpoint string, statusCode int) LogFields {
	f[FieldEndpoint] = endpoint
	f[FieldStatusCode] = statusCode
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
