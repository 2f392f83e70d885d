package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/httputil"
)

// RateLimiter is a Redis-backed fixed-window counter shared across
// instances. Redis errors fail open so a cache outage never blocks chat.
type RateLimiter struct {
	redis             *redis.Client
	prefix            string
	requestsPerWindow int
	window            time.Duration
	log               *logrus.Logger

	// OnReject is called when a request is turned away, for metrics.
	OnReject func()
}

// NewRateLimiter creates a per-key limiter with a one-minute window.
func NewRateLimiter(redisClient *redis.Client, requestsPerMinute int, log *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		redis:             redisClient,
		prefix:            "ratelimit:chat",
		requestsPerWindow: requestsPerMinute,
		window:            time.Minute,
		log:               log,
	}
}

// Allow increments the key's window counter and reports whether the
// request is under the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val() <= int64(rl.requestsPerWindow), nil
}

// Handler limits requests per authenticated user; unauthenticated
// requests fall through untouched since auth runs first.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.Allow(r.Context(), actor.UserID)
		if err != nil {
			rl.log.WithError(err).Warn("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			if rl.OnReject != nil {
				rl.OnReject()
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
