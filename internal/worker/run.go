package worker

import (
	"context"
	"time"

	"lienzo/internal/pkg/logger"
	"lienzo/internal/repositories"
	"lienzo/internal/worker/processor"
)

// Popper is the receiving half of a queue.
type Popper interface {
	Pop(ctx context.Context) (string, error)
}

// RunProcessor processes one run by ID.
type RunProcessor interface {
	ProcessRun(ctx context.Context, runID string) error
}

// popTimeout bounds a single Pop so cancellation is noticed even when the
// backend ignores ctx while long-polling.
const popTimeout = 30 * time.Second

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	p := processor.New(processor.Deps{
		Runs:          repositories.NewRunRepository(d.Pool),
		SP:            d.SP,
		StorageRoot:   d.StorageRoot,
		CleanupLocal:  d.CleanupLocal,
		MaxInputBytes: d.MaxInputBytes,
		Log:           log,
	})

	log.Info("worker started", "queue", d.Queue.Name(), "storage", d.SP.Provider())
	return Loop(ctx, d.Queue, p, log)
}

// Loop pops run IDs and processes them one at a time until ctx is done.
func Loop(ctx context.Context, q Popper, p RunProcessor, log *logger.Logger) error {
	retry := time.Second
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		popCtx, cancel := context.WithTimeout(ctx, popTimeout)
		runID, err := q.Pop(popCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry):
			}
			continue
		}

		if runID == "" {
			continue
		}

		runCtx := logger.ContextWithRunID(ctx, runID)
		runLog := log.WithRunID(runID)

		runLog.Info("processing run")
		startTime := time.Now()

		if err := p.ProcessRun(runCtx, runID); err != nil {
			runLog.Error("run failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			runLog.Info("run completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
