package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"

	"ferrer/internal/amqp"
	"ferrer/internal/cache"
	"ferrer/internal/core"
	"ferrer/internal/log"
	"ferrer/internal/middleware/ratelimit"
	"ferrer/internal/middleware/security"
	"ferrer/internal/middleware/trace"
	"ferrer/internal/rates"
)

// EarningsAggregator builds reports for a named range.
type EarningsAggregator interface {
	Aggregate(ctx context.Context, name core.RangeName) (*core.EarningsReport, error)
}

// DetailResolver resolves an identifier of unknown kind.
type DetailResolver interface {
	Resolve(ctx context.Context, id string) (*core.OrderDetail, error)
}

// ExportPublisher queues export requests.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

// ReadyCheck probes one dependency for /readyz.
type ReadyCheck func(ctx context.Context) error

// Deps are the services behind the API. Exports may be nil when messaging
// is disabled.
type Deps struct {
	Earnings    EarningsAggregator
	Orders      DetailResolver
	Rates       rates.Provider
	Exports     ExportPublisher
	ReadyChecks map[string]ReadyCheck
	Logger      *log.Logger
}

// Options tune request handling.
type Options struct {
	RequestTimeout  time.Duration
	RateLimitRPM    int
	ReportCacheTTL  time.Duration
	ReportCacheSize int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		RequestTimeout:  30 * time.Second,
		RateLimitRPM:    60,
		ReportCacheTTL:  5 * time.Minute,
		ReportCacheSize: 16,
	}
}

type appMetrics struct {
	uptime        time.Time
	reportsBuilt  int64
	exportsQueued int64
}

type Server struct {
	http.Server
	deps      Deps
	opts      Options
	logger    *log.Logger
	validate  *validator.Validate
	clientIP  *security.ClientIPResolver
	tracer    *trace.Middleware
	limiter   *ratelimit.Limiter
	cacheMgr  *cache.Manager
	reports   *cache.LRUCache[*core.EarningsReport]
	inflight  singleflight.Group
	metrics   appMetrics
	closeOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
		clientIP: security.NewClientIPResolver(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		cacheMgr: cache.NewManager(),
		metrics:  appMetrics{uptime: time.Now()},
	}
	s.tracer = trace.NewMiddleware(s.clientIP.ClientIP)

	if opts.ReportCacheSize > 0 && opts.ReportCacheTTL > 0 {
		s.reports = cache.NewLRUCache[*core.EarningsReport](opts.ReportCacheSize, opts.ReportCacheTTL)
		s.cacheMgr.Register("earnings_reports", s.reports)
		s.cacheMgr.StartCleanup(opts.ReportCacheTTL)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger, trace.GetRequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.recoverer)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware(s.clientIP.ClientIP, s.onRateLimited))
	api.Use(s.withTimeout)
	api.HandleFunc("/earnings", s.handleEarnings).Methods(http.MethodGet)
	api.HandleFunc("/earnings/exports", s.handleCreateExport).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.handleOrderDetail).Methods(http.MethodGet)
	api.HandleFunc("/rates", s.handleRates).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorMessage(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(r.Context(), "Handler panic",
					log.FieldPath, r.URL.Path,
					log.FieldRequestID, trace.GetRequestID(r.Context()),
					"panic", rec)
				s.writeErrorMessage(w, r, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.ClientIP(r),
		log.FieldPath, r.URL.Path)
	s.writeErrorMessage(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
