package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	for i := range 5 {
		r := l.Allow("k")
		if !r.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if r.Limit != 5 {
			t.Errorf("Limit = %d, want 5", r.Limit)
		}
		if r.Remaining != 4-i {
			t.Errorf("Remaining = %d, want %d", r.Remaining, 4-i)
		}
	}
	r := l.Allow("k")
	if r.Allowed {
		t.Fatal("6th request should be limited")
	}
	if r.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %v", r.RetryAfter)
	}

	// A different key has its own bucket.
	if !l.Allow("other").Allowed {
		t.Error("other key should be allowed")
	}

	// One token refills every 12s at 5/min.
	now = now.Add(15 * time.Second)
	if !l.Allow("k").Allowed {
		t.Error("request after refill should be allowed")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(60, time.Minute, 10)
	defer l.Close()
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(11 * time.Minute)
	l.cleanup()
	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("expected stale bucket to be removed, have %d", n)
	}
}

func TestConfig_Match(t *testing.T) {
	c := New(600, 60)
	defer c.Close()
	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/api/health", ""},
		{"GET", "/api/tables/x/columns", "read"},
		{"POST", "/api/tables/x/rows/query", "read"},
		{"POST", "/api/tables/x/rows", "write"},
		{"PUT", "/api/rows/r/cells/c", "write"},
		{"OPTIONS", "/api/tables", ""},
	}
	for _, tt := range tests {
		got := ""
		if tier := c.Match(tt.method, tt.path); tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("Match(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
	var nilCfg *Config
	if nilCfg.Match("GET", "/api/tables") != nil {
		t.Error("nil config should not limit")
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec, Result{Allowed: false, Limit: 5, Remaining: 0, ResetAt: time.Unix(100, 0), RetryAfter: 3 * time.Second})
	w.WriteHeader(429)
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "100" {
		t.Errorf("X-RateLimit-Reset = %q", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Retry-After = %q", got)
	}
}
