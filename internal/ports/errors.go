package ports

import (
	"fmt"
	"time"
)

// RateLimitedError signals a retryable sink rejection. RetryAfter is the
// advised wait before the next attempt; zero means the caller should use
// its default backoff.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("sink rate limited, retry after %s", e.RetryAfter)
	}
	return "sink rate limited"
}

// FatalError signals a non-retryable sink failure (bad credentials,
// malformed payload). It aborts the remaining queue for the run.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sink fatal: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("sink fatal: %s", e.Reason)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
