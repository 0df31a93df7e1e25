package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"maestro/internal/cache"
	applog "maestro/internal/log"
	"maestro/internal/middleware/ratelimit"
	"maestro/internal/middleware/security"
	"maestro/internal/middleware/trace"
	"maestro/internal/services"
)

// Options tunes the server's cache, rate limiting and logging.
type Options struct {
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerMinute int
	Logger            *applog.Logger
}

func DefaultOptions() Options {
	return Options{
		CacheSize:         256,
		CacheTTL:          30 * time.Second,
		RequestsPerMinute: 60,
	}
}

// Server is the JSON API over cards, expenses and invoices.
type Server struct {
	http.Server

	cards    *services.CardService
	expenses *services.ExpenseService
	invoices *services.InvoiceService

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Cached invoice views, invalidated on every write that can move an
	// invoice total.
	invoiceCache *cache.LRUCache[services.Invoice]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, cards *services.CardService, expenses *services.ExpenseService, invoices *services.InvoiceService, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		cards:    cards,
		expenses: expenses,
		invoices: invoices,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		detector: detector,
		tracer: trace.NewMiddleware(detector.ExtractClientIP, detector.IsSuspicious,
			applog.NewStructuredLogger(logger)),
		invoiceCache: cache.NewLRUCache[services.Invoice](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.invoiceCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("GET /api/cards/{id}", s.handleGetCard)
	mux.HandleFunc("PUT /api/cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("GET /api/cards/{id}/invoice", s.handleCardInvoice)
	mux.HandleFunc("POST /api/cards/{id}/invoice/pay", s.handlePayInvoice)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/expenses/{id}/installments", s.handleInstallmentPlan)
	mux.HandleFunc("PUT /api/expenses/{id}/installments", s.handleSetPaidInstallments)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP)(handler)
	handler = headers.Middleware(handler)
	// Request-scoped loggers carry the trace request ID, so the ID
	// middleware sits inside the tracer that generates it.
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the HTTP server and background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	reqMetrics := s.tracer.GetMetrics()
	secMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_requests":        reqMetrics.TotalRequests,
		"invoice_views":         reqMetrics.InvoiceViews,
		"invoice_pays":          reqMetrics.InvoicePays,
		"avg_response_time_us":  reqMetrics.AverageResponseTimeUs,
		"suspicious_requests":   secMetrics.SuspiciousRequests,
		"rate_limit_clients":    s.limiter.ActiveClients(),
		"rate_limited_requests": s.limiter.LimitedRequests(),
		"invoice_cache_size":    s.invoiceCache.Size(),
	})
}

func invoiceCacheKey(cardID string, ref time.Time) string {
	return "invoice:" + cardID + ":" + ref.Format("2006-01-02")
}

// invalidateCardInvoices drops every cached invoice view of a card.
func (s *Server) invalidateCardInvoices(cardID string) {
	if cardID == "" {
		return
	}
	s.invoiceCache.DeletePrefix("invoice:" + cardID + ":")
}

func parseRefDate(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("ref")
	if v == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", v)
}

func pathID(r *http.Request) string {
	return r.PathValue("id")
}
