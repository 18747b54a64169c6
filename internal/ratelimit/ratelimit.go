// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/metrics"
)

// Limiter counts requests per key with INCR + EXPIRE. A nil Limiter or a nil
// client allows everything.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	log    zerolog.Logger
}

// New returns a Limiter. When url is empty the limiter is disabled.
func New(url string, limit int, window time.Duration, log zerolog.Logger) (*Limiter, error) {
	if url == "" {
		return &Limiter{limit: limit, window: window, log: log}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), limit, window, log), nil
}

func NewWithClient(rdb *redis.Client, limit int, window time.Duration, log zerolog.Logger) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window, log: log}
}

// Allow reports whether another request for key fits in the current window.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}

	k := fmt.Sprintf("rl:%s:%s", bucket, key)
	cnt, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(l.limit), nil
}

// Middleware limits requests per client IP within bucket. Redis errors fail
// open.
func (l *Limiter) Middleware(bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), bucket, clientKey(r))
			if err != nil {
				l.log.Warn().Err(err).Str("bucket", bucket).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RateLimited.WithLabelValues(bucket).Inc()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the client IP without its port, so every connection from one
// address shares a window.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Limiter) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
