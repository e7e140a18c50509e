package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeCounter struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
	keys   []string
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttl: 10 * time.Minute}
}

func (c *fakeCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if c.err != nil {
		return 0, 0, c.err
	}
	c.counts[key]++
	c.keys = append(c.keys, key)
	return c.counts[key], c.ttl, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func do(h http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiter_OverLimit(t *testing.T) {
	counter := newFakeCounter()
	rules := []Rule{{Prefix: "/api/", ID: "api", Limit: 3, Window: time.Minute}}
	h := New(counter, rules, zap.NewNop()).Middleware(okHandler())

	for i := 0; i < 3; i++ {
		if rec := do(h, http.MethodGet, "/api/products", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := do(h, http.MethodGet, "/api/products", "10.0.0.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "600" {
		t.Errorf("Retry-After = %q, want 600", got)
	}
}

func TestLimiter_SeparateClientsSeparateBudgets(t *testing.T) {
	counter := newFakeCounter()
	rules := []Rule{{Prefix: "/api/", ID: "api", Limit: 1, Window: time.Minute}}
	h := New(counter, rules, zap.NewNop()).Middleware(okHandler())

	do(h, http.MethodGet, "/api/products", "10.0.0.1:1234")

	if rec := do(h, http.MethodGet, "/api/products", "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("other client got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/products", "10.0.0.1:5678"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same IP, new port should share the budget, got %d", rec.Code)
	}
}

func TestLimiter_FirstMatchWins(t *testing.T) {
	counter := newFakeCounter()
	h := New(counter, DefaultRules(), zap.NewNop()).Middleware(okHandler())

	do(h, http.MethodPost, "/api/orders", "10.0.0.1:1234")
	do(h, http.MethodGet, "/api/orders", "10.0.0.1:1234")
	do(h, http.MethodGet, "/api/admin/users", "10.0.0.1:1234")

	want := []string{
		"ratelimit:orders-create:10.0.0.1",
		"ratelimit:api-default:10.0.0.1",
		"ratelimit:admin:10.0.0.1",
	}
	if len(counter.keys) != len(want) {
		t.Fatalf("keys = %v", counter.keys)
	}
	for i, k := range want {
		if counter.keys[i] != k {
			t.Errorf("key[%d] = %q, want %q", i, counter.keys[i], k)
		}
	}
}

func TestLimiter_UnmatchedPathPassesThrough(t *testing.T) {
	counter := newFakeCounter()
	h := New(counter, DefaultRules(), zap.NewNop()).Middleware(okHandler())

	if rec := do(h, http.MethodGet, "/healthz", "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(counter.keys) != 0 {
		t.Errorf("counter touched for unmatched path: %v", counter.keys)
	}
}

func TestLimiter_FailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = context.DeadlineExceeded
	rules := []Rule{{Prefix: "/api/", ID: "api", Limit: 1, Window: time.Minute}}
	h := New(counter, rules, zap.NewNop()).Middleware(okHandler())

	for i := 0; i < 5; i++ {
		if rec := do(h, http.MethodGet, "/api/products", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked while counter is down: %d", i+1, rec.Code)
		}
	}
}
