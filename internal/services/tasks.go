package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TaskRunner runs side effects that must outlive the request that started
// them. Failures are logged and never reported to the caller.
type TaskRunner struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewTaskRunner creates a TaskRunner whose tasks are cancelled after timeout.
func NewTaskRunner(timeout time.Duration) *TaskRunner {
	return &TaskRunner{timeout: timeout}
}

// Go runs fn in its own goroutine with a context detached from ctx's
// cancellation but carrying its values.
func (r *TaskRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("task", name).Interface("panic", p).Msg("Background task panicked")
			}
		}()

		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := fn(taskCtx); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("Background task failed")
		}
	}()
}

// Wait blocks until every started task has finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
