// Package batch executes independent per-item transfers in fixed-size
// concurrent batches with a hard join barrier between batches and a single
// shared error aggregation point per batch.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mtkoskinen/onedrive-batch/internal/errsink"
)

// Task is one unit of transfer work. Run returns a descriptive error naming
// the item on failure; it must not panic — one item's failure never crashes
// its batch.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Engine partitions task lists into batches of at most maxConcurrency and
// runs one goroutine per task per batch. Batches never overlap: batch N+1
// starts only after every worker of batch N has finished and the shared sink
// has been drained.
type Engine struct {
	maxConcurrency int
	logger         *slog.Logger
}

// New creates an engine. maxConcurrency must be positive — a non-positive
// limit is a configuration error, rejected here rather than silently clamped.
func New(maxConcurrency int, logger *slog.Logger) (*Engine, error) {
	if maxConcurrency <= 0 {
		return nil, fmt.Errorf("batch: max concurrency must be positive, got %d", maxConcurrency)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{maxConcurrency: maxConcurrency, logger: logger}, nil
}

// Run consumes tasks from the TAIL of the list in chunks of at most
// maxConcurrency, joins each chunk, and drains the shared sink. A failing
// batch aborts the run: remaining un-popped tasks are abandoned and the
// aggregated error (prefix + all per-item messages) propagates. Completed
// batches are not rolled back — partial side effects persist. An empty task
// list is an immediate success.
func (e *Engine) Run(ctx context.Context, tasks []Task, prefix string) error {
	if len(tasks) == 0 {
		return nil
	}

	var sink errsink.Sink

	total := len(tasks)
	batchNum := 0

	for len(tasks) > 0 {
		n := e.maxConcurrency
		if len(tasks) < n {
			n = len(tasks)
		}

		chunk := tasks[len(tasks)-n:]
		tasks = tasks[:len(tasks)-n]
		batchNum++

		e.logger.Debug("starting batch",
			slog.Int("batch", batchNum),
			slog.Int("size", n),
			slog.Int("remaining", len(tasks)),
		)

		e.runBatch(ctx, chunk, &sink)

		// The barrier has passed; drain is the single checkpoint where
		// anyone observes whether this batch failed.
		if err := sink.Drain(prefix); err != nil {
			e.logger.Warn("batch failed, abandoning remaining tasks",
				slog.Int("batch", batchNum),
				slog.Int("abandoned", len(tasks)),
			)

			return err
		}
	}

	e.logger.Debug("all batches complete",
		slog.Int("batches", batchNum),
		slog.Int("tasks", total),
	)

	return nil
}

// runBatch launches one worker per task and blocks until all have finished.
// Workers report failures through the sink, never directly — the group error
// is always nil, errgroup serves purely as the join barrier.
func (e *Engine) runBatch(ctx context.Context, chunk []Task, sink *errsink.Sink) {
	g, gctx := errgroup.WithContext(ctx)

	for _, task := range chunk {
		task := task

		g.Go(func() error {
			if err := task.Run(gctx); err != nil {
				sink.Record(err.Error())
			}

			return nil
		})
	}

	// Workers never return errors, so Wait only ever reports nil; it is the
	// batch barrier. No worker outlives its own batch.
	_ = g.Wait()
}
