package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/somethingsbrewing/storefront-api/internal/redisx"
)

// Rule maps a route bucket to a fixed request budget per window. Counters
// live in Redis keyed by bucket and client IP and evict via TTL, so limiter
// state survives restarts and is shared across replicas.
type Rule struct {
	Method string // empty matches any method
	Prefix string
	ID     string
	Limit  int64
	Window time.Duration
}

// DefaultRules mirrors the storefront's route budgets. First match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Prefix: "/api/orders", ID: "orders-create", Limit: 20, Window: 15 * time.Minute},
		{Prefix: "/api/admin/", ID: "admin", Limit: 60, Window: 15 * time.Minute},
		{Prefix: "/api/", ID: "api-default", Limit: 100, Window: 15 * time.Minute},
	}
}

// Counter increments the window counter for key and reports the new count
// plus the time remaining until the window resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type RedisCounter struct{ R *redis.Client }

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	n, err := c.R.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if n == 1 {
		if err := c.R.Expire(ctx, key, window).Err(); err != nil {
			return n, window, err
		}
		return n, window, nil
	}
	ttl, err := c.R.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return n, window, err
	}
	return n, ttl, nil
}

type Limiter struct {
	counter Counter
	rules   []Rule
	log     *zap.Logger
}

func New(counter Counter, rules []Rule, log *zap.Logger) *Limiter {
	return &Limiter{counter: counter, rules: rules, log: log}
}

func (l *Limiter) match(method, path string) *Rule {
	for i := range l.rules {
		r := &l.rules[i]
		if r.Method != "" && r.Method != method {
			continue
		}
		if strings.HasPrefix(path, r.Prefix) {
			return r
		}
	}
	return nil
}

// Middleware enforces the matched rule. Redis failures fail open: a broken
// limiter must not take the storefront down with it.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule := l.match(r.Method, r.URL.Path)
		if rule == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf(redisx.KeyRateLimit, rule.ID, clientIP(r))
		count, ttl, err := l.counter.Incr(r.Context(), key, rule.Window)
		if err != nil {
			l.log.Warn("rate limit counter unavailable", zap.String("bucket", rule.ID), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count > rule.Limit {
			retryAfter := int64(math.Ceil(ttl.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// RealIP middleware rewrites RemoteAddr from X-Forwarded-For upstream.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
