package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// LimitedProvider is a decorator that bounds how many calls may be in
// flight simultaneously. The bound exists to respect the upstream
// provider's rate limits, not local resource pressure.
//
// Each pipeline owns its own pool: generation and grading are constructed
// with independent limiters so a grading burst cannot starve generation.
// The pool is injected at construction, never process-global, so tests can
// use a pool of size 1 for deterministic ordering.
type LimitedProvider struct {
	inner Provider
	sem   *semaphore.Weighted
}

// WithLimit wraps a Provider so at most max calls run concurrently.
// A call that is retrying holds its slot across attempts.
func WithLimit(p Provider, max int64) Provider {
	return &LimitedProvider{inner: p, sem: semaphore.NewWeighted(max)}
}

func (l *LimitedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return l.inner.Generate(ctx, req)
}

func (l *LimitedProvider) ModelID() string {
	return l.inner.ModelID()
}
