// Package trace tags every API request with an id and logs its outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/log"
)

type ctxKey struct{}

// HeaderRequestID is honoured on input and echoed on output.
const HeaderRequestID = "X-Request-ID"

const maxIncomingID = 64

// Metrics splits traffic into report reads and ledger writes.
type Metrics struct {
	TotalRequests  int64
	Reports        int64
	Writes         int64
	ClientErrors   int64
	ServerErrors   int64
	LastDurationUs int64
}

type Middleware struct {
	clientIP func(*http.Request) string

	total          atomic.Int64
	reports        atomic.Int64
	writes         atomic.Int64
	clientErrs     atomic.Int64
	serverErrs     atomic.Int64
	lastDurationUs atomic.Int64
}

// NewMiddleware logs the address clientIP resolves; it may be nil.
func NewMiddleware(clientIP func(*http.Request) string) *Middleware {
	return &Middleware{clientIP: clientIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := incomingID(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, id)

		ip := ""
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		slog.DebugContext(ctx, "API request started",
			log.FieldRequestID, id,
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"client_ip", ip)

		m.total.Add(1)
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			m.reports.Add(1)
		} else {
			m.writes.Add(1)
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.lastDurationUs.Store(elapsed.Microseconds())

		level := slog.LevelInfo
		switch {
		case sw.status >= 500:
			level = slog.LevelError
			m.serverErrs.Add(1)
		case sw.status >= 400:
			level = slog.LevelWarn
			m.clientErrs.Add(1)
		}
		slog.Log(ctx, level, "API request completed",
			log.FieldRequestID, id,
			"method", r.Method,
			"path", r.URL.Path,
			log.FieldStatusCode, sw.status,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", ip)
	})
}

// incomingID accepts a gateway id only when it is short and printable,
// since it is echoed into headers and logs.
func incomingID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIncomingID {
		return ""
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return id
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns the id assigned by Middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.total.Load(),
		Reports:        m.reports.Load(),
		Writes:         m.writes.Load(),
		ClientErrors:   m.clientErrs.Load(),
		ServerErrors:   m.serverErrs.Load(),
		LastDurationUs: m.lastDurationUs.Load(),
	}
}
