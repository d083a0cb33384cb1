package concurrency

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// ThrottledWorker runs a callback for each job argument, no more than once per interval.
type ThrottledWorker[T any] struct {
	logger      *log.Logger
	interval    time.Duration
	jobCallback func(arg T) error
}

func NewThrottledWorker[T any](logger *log.Logger, interval time.Duration, jobCallback func(arg T) error) ThrottledWorker[T] {
	return ThrottledWorker[T]{logger: logger, interval: interval, jobCallback: jobCallback}
}

// Run consumes job args until ctx is done or the channel is closed.
func (w *ThrottledWorker[T]) Run(ctx context.Context, jobArgs <-chan T) {
	limiter := time.NewTicker(w.interval)
	defer limiter.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case arg, ok := <-jobArgs:
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-limiter.C:
			}
			if err := w.jobCallback(arg); err != nil {
				w.logger.Error(err)
			}
		}
	}
}
