package store

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs blocking volume reads on a bounded number of goroutines so
// request handlers never do the I/O themselves.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool that runs at most workers jobs at once. A
// non-positive count uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), size: workers}
}

// Size returns the worker bound.
func (p *Pool) Size() int { return p.size }

// Do runs fn on a pool goroutine and waits for it or for ctx. When ctx ends
// first the job still finishes in the background and its result is dropped.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
