// Package retrypolicy provides a bounded retry combinator shared by the
// content aggregator (fetch until ready) and the generation pipeline
// (regenerate until the batch is acceptable). Transport-level retries with
// backoff live in the llm package; this one is fixed-delay and driven by an
// acceptance predicate rather than error classification.
package retrypolicy

import (
	"context"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts"`

	// Delay is the fixed wait between attempts.
	Delay time.Duration `yaml:"delay"`
}

// Do runs fn until accepted reports the result usable or attempts are
// exhausted. The last result and error are returned either way, so callers
// can choose to keep a rejected-but-present final result (partial batches).
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), accepted func(v T, err error) bool) (T, error) {
	var (
		last    T
		lastErr error
	)

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(p.Delay):
			}
		}

		last, lastErr = fn(ctx)
		if accepted(last, lastErr) {
			return last, lastErr
		}
		if ctx.Err() != nil {
			return last, ctx.Err()
		}
	}

	return last, lastErr
}
