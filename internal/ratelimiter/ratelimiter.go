// Package ratelimiter throttles client instructions with a token bucket.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimited stands in for rate.Inf, whose Tokens() reporting is awkward.
const unlimited = 1_000_000_000

// RateLimiter wraps golang.org/x/time/rate for per-connection instruction
// throttling. Each instruction consumes one token.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
	limited bool
}

// New creates a RateLimiter allowing requestsPerSecond sustained and burst
// instructions at once.
//
// Special cases:
//   - requestsPerSecond = 0: no limiting
//   - burst = 0: burst equals requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{
			limiter: rate.NewLimiter(rate.Limit(unlimited), unlimited),
		}
	}

	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
		limited: true,
	}
}

// Limited reports whether the limiter actually enforces a rate.
func (r *RateLimiter) Limited() bool {
	return r.limited
}

// Allow consumes a token if one is available without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Acquire takes a token, waiting if necessary.
//
// Returns:
//   - throttled: true when the caller had to wait for the token
//   - err: ctx error if the wait was abandoned
func (r *RateLimiter) Acquire(ctx context.Context) (throttled bool, err error) {
	if r.limiter.Allow() {
		return false, nil
	}
	return true, r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket (may be fractional).
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
