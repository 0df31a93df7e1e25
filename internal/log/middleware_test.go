package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newCapturedLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, nil),
	})
	return logger, &buf
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("FromContext should never return nil")
	}
	if logger.Component() != "unknown" {
		t.Errorf("fallback component = %q", logger.Component())
	}
}

func TestMiddlewarePutsLoggerInContext(t *testing.T) {
	logger, _ := newCapturedLogger()

	var got *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Error("context logger is not the one installed by the middleware")
	}
}

func TestRequestIDMiddlewareTagsLogs(t *testing.T) {
	logger, buf := newCapturedLogger()

	chain := Middleware(logger)(
		RequestIDMiddleware(func(r *http.Request) string { return "req_test123" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).InfoContext(r.Context(), "handled")
			})))
	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req_test123") {
		t.Errorf("log output missing request id: %s", out)
	}
}

func TestLogHTTPEndEscalatesLevel(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{422, "level=WARN"},
		{500, "level=ERROR"},
	}

	for _, tt := range tests {
		logger, buf := newCapturedLogger()
		sl := NewStructuredLogger(logger)

		r := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "1.2.3.4")

		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: output %q missing %s", tt.status, buf.String(), tt.level)
		}
	}
}

func TestLogInvoicePaidFields(t *testing.T) {
	logger, buf := newCapturedLogger()
	sl := NewStructuredLogger(logger)

	sl.LogInvoicePaid(context.Background(), "card-1", "2025-04", 12050, 3)

	out := buf.String()
	for _, want := range []string{"card_id=card-1", "period=2025-04", "total_cents=12050", "updates=3", "operation=pay"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
