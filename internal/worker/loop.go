// Package worker drains the task queue: a polling loop per worker, a
// dispatcher over the task variants, bulk fan-out, and the per-day ingestion
// pipeline.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jchen1/qs/internal/domain"
	"github.com/jchen1/qs/internal/observability"
	"github.com/jchen1/qs/internal/queue"
)

// Handler executes one popped task.
type Handler interface {
	Handle(ctx context.Context, task domain.Task) error
}

// Option configures optional behaviour for the Loop.
type Option func(*Loop)

// WithLogger overrides the logger used to report progress and errors.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPollTimeout sets how long one Pop blocks waiting for a task.
func WithPollTimeout(d time.Duration) Option {
	return func(l *Loop) {
		l.pollTimeout = d
	}
}

// WithIdleBackoff sets the sleep between polls when the queue is idle or
// erroring.
func WithIdleBackoff(d time.Duration) Option {
	return func(l *Loop) {
		l.idleBackoff = d
	}
}

// Loop is one worker's poll/execute cycle. Several Loops may share a queue
// and handler; the broker's pop exclusivity keeps them from colliding.
type Loop struct {
	queue       queue.Queue
	handler     Handler
	logger      *log.Logger
	pollTimeout time.Duration
	idleBackoff time.Duration
}

// NewLoop constructs a Loop with 5s poll timeout and idle backoff defaults.
func NewLoop(q queue.Queue, handler Handler, opts ...Option) *Loop {
	l := &Loop{
		queue:       q,
		handler:     handler,
		logger:      log.New(log.Writer(), "[worker] ", log.LstdFlags|log.Lshortfile),
		pollTimeout: 5 * time.Second,
		idleBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run polls and dispatches until ctx is cancelled. Cancellation is checked
// only between tasks: a task already executing finishes, and its terminal
// queue actions run on an uncancellable context.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		lease, err := l.queue.Pop(ctx, l.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			l.logger.Printf("pop error: %v", err)
			l.idle(ctx)
			continue
		}
		if lease == nil {
			// Timed out with nothing to do.
			l.idle(ctx)
			continue
		}

		l.execute(context.WithoutCancel(ctx), lease)
	}
}

func (l *Loop) execute(ctx context.Context, lease queue.Lease) {
	task := lease.Task()
	l.logger.Printf("processing task %s (type=%s, metric=%s, user=%s)", task.ID, task.Type, task.Metric, task.UserID)

	if err := l.handler.Handle(ctx, task); err != nil {
		result := "transient_error"
		if domain.IsConfiguration(err) {
			result = "configuration_error"
		}
		observability.RecordTaskProcessed(task.Type, result)
		l.logger.Printf("error processing task %s: %v", task.ID, err)
		if failErr := lease.Fail(ctx); failErr != nil {
			l.logger.Printf("failed to mark task %s failed: %v", task.ID, failErr)
		}
		return
	}

	if err := lease.Complete(ctx); err != nil {
		l.logger.Printf("failed to complete task %s: %v", task.ID, err)
		return
	}
	observability.RecordTaskProcessed(task.Type, "ok")
	l.logger.Printf("processed task %s", task.ID)
}

func (l *Loop) idle(ctx context.Context) {
	timer := time.NewTimer(l.idleBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
