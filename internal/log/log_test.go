package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentPlanner, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)
	logger.Info("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "component=planner") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected output: %s", out)
	}
	if logger.Component() != ComponentPlanner {
		t.Fatalf("component = %q", logger.Component())
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})
	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentHTTP).
		WithRequestID("").
		WithError(nil).
		WithTransaction(7, "expense", "12.5", "food").
		WithCurrency("EUR")

	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request ID should be omitted")
	}
	if _, ok := f[FieldError]; ok {
		t.Error("nil error should be omitted")
	}
	if f[FieldTransactionID] != int64(7) || f[FieldCategory] != "food" || f[FieldCurrency] != "EUR" {
		t.Errorf("unexpected fields: %v", f)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice length = %d, want %d", got, 2*len(f))
	}
}

func TestMiddlewareCarriesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			NewStructuredLogger(FromContext(r.Context())).LogRejected(r.Context(), OpCreate, errors.New("invalid amount"))
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/expenses", nil))

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "error_type=validation_error", "operation=create", `error="invalid amount"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger.Logger == nil || logger.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", logger)
	}
}
