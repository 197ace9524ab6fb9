package portal

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the proactive request rate (requests per second).
	DefaultRate = 2.0

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles portal requests proactively and backs off when the
// portal answers 429 with a Retry-After header.
type RateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter
	retryAfter time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second.
// A non-positive rps uses DefaultRate.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAfter := r.retryAfter
	r.mu.Unlock()

	if wait := time.Until(retryAfter); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return r.bucket.Wait(ctx)
}

// UpdateFromResponse records a Retry-After deadline from a 429 response.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}
	seconds, err := strconv.Atoi(resp.Header.Get(HeaderRetryAfter))
	if err != nil || seconds <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAfter = time.Now().Add(time.Duration(seconds) * time.Second)
}

// RetryAfter returns the time before which no request is sent.
func (r *RateLimiter) RetryAfter() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAfter
}
