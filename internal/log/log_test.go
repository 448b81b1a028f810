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
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMiddlewareAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Format: "json", Output: &buf})

	h := Middleware(logger, func(*http.Request) string { return "req_1" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req_1"`) || !strings.Contains(out, `"component":"http"`) {
		t.Fatalf("log line missing fields: %s", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestFieldsWithPeriod(t *testing.T) {
	f := NewFields().WithPeriod(2025, 0)
	if _, ok := f[FieldMonth]; ok {
		t.Fatalf("zero month must be omitted")
	}
	if len(NewFields().WithPeriod(2025, 3).ToSlice()) != 4 {
		t.Fatalf("expected year and month pairs")
	}
}
