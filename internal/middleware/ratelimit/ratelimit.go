// Package ratelimit caps how many ledger writes a caller may issue per
// minute. Reports are served without limit unless WritesOnly is off.
package ratelimit

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window    = time.Minute
	idleAfter = 10 * time.Minute
)

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*counter

	limit      int
	sweepEvery time.Duration
	writesOnly bool

	allowed  atomic.Int64
	rejected atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type counter struct {
	opened time.Time
	seen   time.Time
	hits   int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// WritesOnly exempts GET and HEAD, so report reads are never throttled.
	WritesOnly bool
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		WritesOnly:        true,
	}
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	TrackedKeys int
	Allowed     int64
	Rejected    int64
}

// NewLimiter starts a sweeper goroutine that Stop ends.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		windows:    make(map[string]*counter),
		limit:      cfg.RequestsPerMinute,
		sweepEvery: cfg.CleanupInterval,
		writesOnly: cfg.WritesOnly,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) bool {
	l.mu.Lock()
	c, ok := l.windows[key]
	if !ok || now.Sub(c.opened) >= window {
		c = &counter{opened: now}
		l.windows[key] = c
	}
	c.hits++
	c.seen = now
	ok = c.hits <= l.limit
	l.mu.Unlock()

	if ok {
		l.allowed.Add(1)
	} else {
		l.rejected.Add(1)
	}
	return ok
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.sweep(now)
		case <-l.stop:
			return
		}
	}
}

// sweep forgets keys that have been idle for idleAfter.
func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.windows {
		if now.Sub(c.seen) > idleAfter {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	return Stats{TrackedKeys: n, Allowed: l.allowed.Load(), Rejected: l.rejected.Load()}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware throttles requests by the key keyOf returns. onLimit writes
// the rejection body; Retry-After is always set to the window length.
func (l *Limiter) Middleware(keyOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.writesOnly && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
				next.ServeHTTP(w, r)
				return
			}

			key := keyOf(r)
			if l.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			slog.WarnContext(r.Context(), "Ledger write rate limit exceeded",
				"key", key,
				"method", r.Method,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "too many ledger writes, retry later", http.StatusTooManyRequests)
		})
	}
}
