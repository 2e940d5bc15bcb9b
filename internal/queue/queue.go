// Package queue provides the durable, at-least-once task queue the ingestion
// workers drain.
package queue

import (
	"context"
	"time"

	"github.com/jchen1/qs/internal/domain"
)

// Lease is an exclusive hold on one popped task. Exactly one of Complete or
// Fail must be called; Complete removes the task, Fail parks the payload for
// operator inspection and re-submission.
type Lease interface {
	Task() domain.Task
	Complete(ctx context.Context) error
	Fail(ctx context.Context) error
}

// Queue is the broker contract: durable push and blocking pop with a lease.
type Queue interface {
	// Push enqueues one task.
	Push(ctx context.Context, task domain.Task) error
	// Pop blocks up to timeout for the next task. A nil lease with a nil
	// error means the wait timed out with nothing to do.
	Pop(ctx context.Context, timeout time.Duration) (Lease, error)
}
