// Package trace assigns request IDs and records the request metrics served
// by the metrics endpoint.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	applog "maestro/internal/log"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey ContextKey = "request_id"

// RequestIDHeader carries the request ID back to the client so API errors
// can be correlated with server logs.
const RequestIDHeader = "X-Request-ID"

// Metrics is a snapshot of the counters the middleware maintains. Invoice
// views and payments are counted separately from the rest of the API since
// they are the endpoints worth watching.
type Metrics struct {
	TotalRequests         int64
	InvoiceViews          int64
	InvoicePays           int64
	AverageResponseTimeUs int64
}

// Middleware traces requests: it tags each one with an ID, logs start and
// completion through the structured logger, and keeps running counters.
type Middleware struct {
	extractIP  func(*http.Request) string
	suspicious func(*http.Request) bool
	logs       *applog.StructuredLogger

	totalRequests   int64
	invoiceViews    int64
	invoicePays     int64
	totalDurationUs int64
}

// NewMiddleware creates a trace middleware. extractIP resolves the client
// address for logs; suspicious, when non-nil, flags requests worth a warning.
func NewMiddleware(extractIP func(*http.Request) string, suspicious func(*http.Request) bool, logs *applog.StructuredLogger) *Middleware {
	return &Middleware{
		extractIP:  extractIP,
		suspicious: suspicious,
		logs:       logs,
	}
}

// Middleware returns the HTTP middleware function.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		m.logs.LogHTTPStart(ctx, r, clientIP)

		if m.suspicious != nil && m.suspicious(r) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				applog.FieldRequestID, requestID,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, clientIP)
		}

		atomic.AddInt64(&m.totalRequests, 1)
		m.countInvoiceEndpoint(r)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.AddInt64(&m.totalDurationUs, duration.Microseconds())

		m.logs.LogHTTPEnd(ctx, r, rw.status, duration.Milliseconds(), clientIP)
	})
}

// countInvoiceEndpoint bumps the per-endpoint counters for the invoice
// routes: GET .../invoice and POST .../invoice/pay.
func (m *Middleware) countInvoiceEndpoint(r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/invoice/pay"):
		atomic.AddInt64(&m.invoicePays, 1)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/invoice"):
		atomic.AddInt64(&m.invoiceViews, 1)
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns a snapshot of the counters. The average is computed
// over all completed requests, not just the most recent one.
func (m *Middleware) GetMetrics() Metrics {
	total := atomic.LoadInt64(&m.totalRequests)
	var avg int64
	if total > 0 {
		avg = atomic.LoadInt64(&m.totalDurationUs) / total
	}
	return Metrics{
		TotalRequests:         total,
		InvoiceViews:          atomic.LoadInt64(&m.invoiceViews),
		InvoicePays:           atomic.LoadInt64(&m.invoicePays),
		AverageResponseTimeUs: avg,
	}
}
