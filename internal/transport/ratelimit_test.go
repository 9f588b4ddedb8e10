// Copyright 2026 The Guidrive Authors

package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock is an adjustable time source for limiter tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiterDisabled(t *testing.T) {
	for _, rate := range []float64{0, -1} {
		if l := NewRateLimiter(rate); l != nil {
			t.Errorf("NewRateLimiter(%v) = %v, want nil", rate, l)
		}
	}

	var nilLimiter *RateLimiter
	if !nilLimiter.Allow() {
		t.Error("nil limiter Allow() = false, want unlimited")
	}
	if nilLimiter.Tokens() != -1 {
		t.Errorf("nil limiter Tokens() = %v, want -1", nilLimiter.Tokens())
	}
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewRateLimiterWithClock(5, clock.Now) // burst of 10

	for i := 0; i < 10; i++ {
		if !l.Allow() {
			t.Fatalf("Allow() = false on burst request %d", i)
		}
	}
	if l.Allow() {
		t.Fatal("Allow() = true with an empty bucket")
	}

	// 5 req/s: one second refills five tokens.
	clock.Advance(time.Second)
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("Allow() = false on refilled request %d", i)
		}
	}
	if l.Allow() {
		t.Fatal("Allow() = true after the refill was consumed")
	}
}

func TestRateLimiterCapsAtBurst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewRateLimiterWithClock(2, clock.Now) // burst of 4

	for i := 0; i < 4; i++ {
		if !l.Allow() {
			t.Fatalf("Allow() = false on burst request %d", i)
		}
	}

	// An idle hour must refill to the burst cap, not 7200 tokens.
	clock.Advance(time.Hour)
	if !l.Allow() {
		t.Fatal("Allow() = false after a long idle period")
	}
	if got := l.Tokens(); got != 3 {
		t.Errorf("Tokens() = %v, want 3 (burst cap minus the one consumed)", got)
	}
}

func TestRateLimiterMinimumBurst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewRateLimiterWithClock(0.1, clock.Now)

	if !l.Allow() {
		t.Fatal("Allow() = false on the first request at a fractional rate")
	}
	if l.Allow() {
		t.Fatal("Allow() = true beyond the minimum burst of 1")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	limiter := NewRateLimiterWithClock(0.5, clock.Now) // burst 1

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(limiter, next)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	if code := get("/message"); code != http.StatusOK {
		t.Errorf("first request = %d, want 200", code)
	}
	if code := get("/message"); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}

	// Health and metrics bypass the bucket even when it is empty.
	if code := get("/health"); code != http.StatusOK {
		t.Errorf("/health = %d, want 200 (exempt)", code)
	}
	if code := get("/metrics"); code != http.StatusOK {
		t.Errorf("/metrics = %d, want 200 (exempt)", code)
	}
}

func TestRateLimitMiddlewareNilPassthrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(nil, next)

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/message", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200 with no limiter", i, rec.Code)
		}
	}
}
