package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_AllowWithinWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other clients are independent")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("new window should allow again")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 3)
	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "61" {
		t.Errorf("Retry-After = %q, want 61", rec.Header().Get("Retry-After"))
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	if rl.requestsPerWindow != DefaultConfig().RequestsPerMinute {
		t.Errorf("zero config should use defaults, got %d", rl.requestsPerWindow)
	}
}
