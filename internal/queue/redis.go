package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jchen1/qs/internal/domain"
)

// RedisQueue is a Redis-list broker. Push LPUSHes JSON payloads; Pop moves
// the next payload into a processing list with BRPOPLPUSH so a crashed
// worker leaves its task visible for recovery. Complete removes the payload
// from the processing list; Fail moves it to <name>:failed.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue constructs a RedisQueue on the named list.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) failedKey() string     { return q.name + ":failed" }

// Push enqueues one task.
func (q *RedisQueue) Push(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push task %s: %w", task.ID, err)
	}
	return nil
}

// Pop blocks up to timeout for the next task. An undecodable payload is
// moved straight to the failed list so it cannot wedge the queue.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (Lease, error) {
	raw, err := q.client.BRPopLPush(ctx, q.name, q.processingKey(), timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		q.quarantine(ctx, raw)
		return nil, fmt.Errorf("decode task payload: %w", err)
	}
	if err := task.Validate(); err != nil {
		q.quarantine(ctx, raw)
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}

	return &redisLease{queue: q, task: task, raw: raw}, nil
}

func (q *RedisQueue) quarantine(ctx context.Context, raw string) {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.LPush(ctx, q.failedKey(), raw)
	_, _ = pipe.Exec(ctx)
}

type redisLease struct {
	queue *RedisQueue
	task  domain.Task
	raw   string
}

func (l *redisLease) Task() domain.Task { return l.task }

func (l *redisLease) Complete(ctx context.Context) error {
	if err := l.queue.client.LRem(ctx, l.queue.processingKey(), 1, l.raw).Err(); err != nil {
		return fmt.Errorf("complete task %s: %w", l.task.ID, err)
	}
	return nil
}

func (l *redisLease) Fail(ctx context.Context) error {
	pipe := l.queue.client.TxPipeline()
	pipe.LRem(ctx, l.queue.processingKey(), 1, l.raw)
	pipe.LPush(ctx, l.queue.failedKey(), l.raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail task %s: %w", l.task.ID, err)
	}
	return nil
}
