// Package http exposes the summary and transaction services as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/summary"
)

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the middleware chain. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Pinger             Pinger
	Logger             *log.Logger
}

type Server struct {
	http.Server

	summary      *summary.Service
	transactions *services.TransactionService
	pinger       Pinger
	timeout      time.Duration

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. The returned server owns a rate
// limiter goroutine that is stopped by Shutdown.
func NewServer(addr string, sum *summary.Service, txs *services.TransactionService, opts Options) *Server {
	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		summary:      sum,
		transactions: txs,
		pinger:       opts.Pinger,
		timeout:      opts.RequestTimeout,
		limiter:      ratelimit.NewLimiter(rlConfig),
		detector:     security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /summary/monthly", s.handleMonthlySummary)
	mux.HandleFunc("GET /summary/yearly", s.handleYearlySummary)
	mux.HandleFunc("GET /summary/balance", s.handleRunningBalance)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	// innermost first; trace ends up outermost so every layer sees the request id
	var handler http.Handler = mux
	handler = auth.HeaderResolver("/healthz", "/readyz")(handler)
	handler = s.withTimeout(handler)
	handler = s.limiter.Middleware(s.writeKey, writeRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.Middleware(logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = s.tracer.Middleware(handler)

	s.Addr = addr
	s.Handler = handler
	s.ReadHeaderTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	if s.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeKey charges writes to the ledger owner named by the gateway, or to
// the client address when the request carries no owner.
func (s *Server) writeKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(auth.HeaderUserID)); id != "" {
		return "owner:" + id
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
		m := s.tracer.GetMetrics()
		limits := s.limiter.Stats()
		slog.Info("HTTP server stopped",
			"total_requests", m.TotalRequests,
			"report_requests", m.Reports,
			"write_requests", m.Writes,
			"client_errors", m.ClientErrors,
			"server_errors", m.ServerErrors,
			"writes_allowed", limits.Allowed,
			"writes_rejected", limits.Rejected,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
