// Package worker provides bounded-concurrency execution of a batch of jobs
// with first-failure drain-and-abort semantics, built on
// golang.org/x/sync/errgroup with SetLimit.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ruxgo-build/ruxgo/internal/msg"
)

// Run executes fn(item) for every item in items, with at most limit
// running concurrently. On the first error, already-running jobs are left
// to finish (they observe ctx cancellation on their own if they choose to),
// but no new job is started; Run returns the first error encountered.
func Run[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// RunWithProgress behaves like Run, but advances pb by one unit after each
// job finishes, regardless of outcome, so a build invoked from the command
// line shows live progress.
func RunWithProgress[T any](ctx context.Context, limit int, items []T, pb *msg.ProgressBar, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		item := item
		g.Go(func() error {
			defer func() {
				if pb != nil {
					pb.Inc()
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
