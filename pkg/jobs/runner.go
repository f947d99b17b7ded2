package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-ops-api/pkg/observability"
)

// Task is a periodic unit of work.
type Task func(ctx context.Context) error

// Runner executes named tasks on fixed intervals until its context is cancelled.
type Runner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Every schedules fn every interval. Panics and errors are logged and reported, never fatal.
func (r *Runner) Every(ctx context.Context, interval time.Duration, name string, fn Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.runOnce(ctx, name, fn)
			}
		}
	}()
}

// Wait blocks until every scheduled task loop has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runOnce(ctx context.Context, name string, fn Task) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic in %s: %v", name, rec)
			observability.CaptureErr(err)
			r.logger.Error("periodic task panicked", zap.String("task", name), zap.Error(err))
		}
	}()
	start := time.Now()
	if err := fn(ctx); err != nil {
		observability.CaptureErr(err)
		r.logger.Warn("periodic task failed", zap.String("task", name), zap.Error(err))
		return
	}
	r.logger.Debug("periodic task finished", zap.String("task", name), zap.Duration("took", time.Since(start)))
}
