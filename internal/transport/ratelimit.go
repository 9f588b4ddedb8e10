// Copyright 2026 The Guidrive Authors
//
// Token bucket rate limiter for the HTTP transport

package transport

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket. A nil *RateLimiter is valid and means
// unlimited, so callers can thread it through unconditionally.
type RateLimiter struct {
	clock  func() time.Time
	last   time.Time
	rate   float64 // tokens per second
	burst  float64 // bucket capacity
	tokens float64
	mu     sync.Mutex
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained with
// a burst of twice that (minimum 1). A non-positive rate returns nil,
// disabling limiting.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return NewRateLimiterWithClock(requestsPerSecond, time.Now)
}

// NewRateLimiterWithClock is NewRateLimiter with an injectable clock, used
// by tests to control time.
func NewRateLimiterWithClock(requestsPerSecond float64, clock func() time.Time) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := requestsPerSecond * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clock:  clock,
		last:   clock(),
		rate:   requestsPerSecond,
		burst:  burst,
		tokens: burst,
	}
}

// Allow consumes a token if one is available and reports whether the request
// may proceed.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	r.tokens += now.Sub(r.last).Seconds() * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = now

	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Tokens returns the current token count, or -1 when the limiter is nil.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens
}

// RateLimitMiddleware rejects requests with 429 once the bucket is empty.
// /health and /metrics stay exempt so load balancers and scrapers are never
// throttled. A nil limiter makes this a passthrough.
func RateLimitMiddleware(limiter *RateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
