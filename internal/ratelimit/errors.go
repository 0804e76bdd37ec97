package ratelimit

import "errors"

var (
	// ErrRateLimited is returned by Limiter.Check when the key has no budget left.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrClosed is returned after the limiter has been shut down.
	ErrClosed = errors.New("rate limiter closed")
)
