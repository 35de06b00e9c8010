package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docmill/docmill/internal/models"
)

// Task pairs an identity with its payload for one unit of batch work.
type Task[T any] struct {
	ID      string
	Payload T
}

// TaskResult carries the outcome for one task.
type TaskResult[R any] struct {
	Value   R
	Err     error
	Elapsed time.Duration
}

// RunTasks fans tasks out to a bounded worker pool and returns an outcome
// for every task ID; tasks still pending when the clock runs out are
// reported with timeout errors rather than dropped. timeout bounds the whole
// run; taskTimeout, when positive, additionally bounds each invocation.
// Panics inside fn are recovered at the worker boundary and reported as
// errors. The result map is built by a single goroutine after the pool
// settles, so no locking is involved.
func RunTasks[T, R any](
	ctx context.Context,
	tasks []Task[T],
	workers int,
	timeout, taskTimeout time.Duration,
	fn func(ctx context.Context, payload T) (R, error),
) map[string]TaskResult[R] {
	results := make(map[string]TaskResult[R], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type keyed struct {
		id  string
		res TaskResult[R]
	}

	jobs := make(chan Task[T])
	done := make(chan keyed, len(tasks))

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(jobs)
		for _, t := range tasks {
			select {
			case jobs <- t:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for n := 0; n < workers; n++ {
		g.Go(func() error {
			for t := range jobs {
				start := time.Now()
				value, err := runOne(gctx, taskTimeout, t.Payload, fn)
				// done is buffered to len(tasks); this never blocks.
				done <- keyed{id: t.ID, res: TaskResult[R]{Value: value, Err: err, Elapsed: time.Since(start)}}
				if gctx.Err() != nil {
					return nil
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	close(done)

	for k := range done {
		results[k.id] = k.res
	}
	for _, t := range tasks {
		if _, ok := results[t.ID]; !ok {
			results[t.ID] = TaskResult[R]{
				Err: models.TimeoutError("task did not finish before the batch deadline", runCtx.Err()),
			}
		}
	}
	return results
}

// runOne invokes fn with panic recovery and an optional per-task deadline.
func runOne[T, R any](
	ctx context.Context,
	taskTimeout time.Duration,
	payload T,
	fn func(context.Context, T) (R, error),
) (value R, err error) {
	if taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, taskTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = models.ExtractionError(fmt.Sprintf("worker panic: %v", r), nil)
		}
	}()
	return fn(ctx, payload)
}
