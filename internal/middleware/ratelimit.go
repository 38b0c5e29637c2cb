package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps counters in Redis so every instance shares one budget.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter allows limit requests per caller per fixed window. Callers are
// identified by user id when authenticated, by remote address otherwise.
type RateLimiter struct {
	counter Counter
	scope   string
	limit   int
	window  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewRateLimiter(counter Counter, scope string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{
		counter: counter,
		scope:   scope,
		limit:   limit,
		window:  window,
		log:     log,
		now:     time.Now,
	}
}

func (rl *RateLimiter) key(r *http.Request) string {
	caller := r.RemoteAddr
	if id := GetUserID(r.Context()); id != uuid.Nil {
		caller = id.String()
	}
	slot := rl.now().Unix() / int64(rl.window/time.Second)
	return fmt.Sprintf("ratelimit:%s:%s:%d", rl.scope, caller, slot)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := rl.counter.Incr(r.Context(), rl.key(r), rl.window)
		if err != nil {
			// Fail open; the limiter guards cost, not correctness.
			rl.log.Warn("rate limit check failed", zap.String("scope", rl.scope), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
