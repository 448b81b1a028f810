package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	if !rl.allowAt("owner:a", now) || !rl.allowAt("owner:a", now.Add(time.Second)) {
		t.Fatalf("first two requests should pass")
	}
	if rl.allowAt("owner:a", now.Add(2*time.Second)) {
		t.Fatalf("third request in window should be limited")
	}
	if !rl.allowAt("owner:b", now) {
		t.Fatalf("other owners are independent")
	}
	if !rl.allowAt("owner:a", now.Add(61*time.Second)) {
		t.Fatalf("new window should reset the counter")
	}

	st := rl.Stats()
	if st.Allowed != 4 || st.Rejected != 1 || st.TrackedKeys != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSweepForgetsIdleKeys(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()

	now := time.Now()
	rl.allowAt("old", now.Add(-11*time.Minute))
	rl.allowAt("fresh", now)
	rl.sweep(now)
	if n := rl.Stats().TrackedKeys; n != 1 {
		t.Fatalf("expected 1 key after sweep, got %d", n)
	}
}

func TestMiddlewareWritesOnly(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, WritesOnly: true})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "owner:c" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("reads must not be limited, got %d", rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/transactions", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first write should pass, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/transactions/x", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write should be limited, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After header")
	}
}
