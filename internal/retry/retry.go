// Package retry implements the bounded exponential backoff used for every
// external API call (MFDS, USDA): 3 retries, 1s base delay, doubling.
package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
)

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Do runs fn up to opts.MaxRetries+1 times, sleeping baseDelay*2^attempt
// between failures. The last error is returned once retries are exhausted;
// callers treat that as a soft failure (empty result), never a crash.
func Do[T any](ctx context.Context, opts Options, fn func() (T, error)) (T, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}
		delay := baseDelay * (1 << attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
