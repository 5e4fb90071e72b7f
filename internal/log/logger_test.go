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

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Component: ComponentLedger,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	l.Info("Transaction recorded", FieldAmount, "50")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "amount=50") {
		t.Fatalf("unexpected log line: %s", out)
	}
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("component logged more than once: %s", out)
	}
}

func TestMiddlewareTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	h := Middleware(base, func(*http.Request) string { return "req-1" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handled")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if out := buf.String(); !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "component=http") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("fallback logger = %+v", l)
	}
}
