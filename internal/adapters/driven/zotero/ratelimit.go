package zotero

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the sustained request rate.
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst is the token bucket size.
	DefaultBurst = 10

	// HeaderBackoff asks clients to pause before the next request (seconds).
	HeaderBackoff = "Backoff"

	// HeaderRetryAfter accompanies 429 and 503 responses (seconds).
	HeaderRetryAfter = "Retry-After"

	// defaultRetryAfter applies when a 429 or 503 carries no hint.
	defaultRetryAfter = 60
)

// RateLimiter throttles API requests with a token bucket and pauses
// entirely while the server has asked for a backoff.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter with the default rate.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRequestsPerSecond, DefaultBurst)
}

// NewRateLimiterWithConfig creates a rate limiter with a custom rate.
func NewRateLimiterWithConfig(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a request may be made.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// UpdateFromResponse records any backoff the server requested.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	if seconds, ok := headerSeconds(resp.Header, HeaderBackoff); ok {
		r.pause(seconds)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		seconds, ok := headerSeconds(resp.Header, HeaderRetryAfter)
		if !ok {
			seconds = defaultRetryAfter
		}
		r.pause(seconds)
	}
}

// RetryAt returns when requests may resume. Zero means no backoff is pending.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

// pause extends the backoff window; it never shortens one already set.
func (r *RateLimiter) pause(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := time.Now().Add(time.Duration(seconds) * time.Second)
	if at.After(r.retryAt) {
		r.retryAt = at
	}
}

func headerSeconds(h http.Header, name string) (int, bool) {
	v := h.Get(name)
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}
