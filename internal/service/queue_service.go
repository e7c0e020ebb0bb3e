package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by ClaimBlocking when nothing arrived in time.
var ErrQueueEmpty = errors.New("queue empty")

type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, limit int64) (int64, error)
}

// redisQueue is a reliable queue on two Redis lists.
// Claim: BRPOPLPUSH queue -> processing
// Ack:   LREM from processing
// A claimed id that is never acked stays in processing until RequeueStale
// moves it back.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
}

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string) Queue {
	return &redisQueue{rdb: rdb, queueKey: queueKey, processingKey: processingKey}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

// ClaimBlocking waits up to timeout for an id; timeout <= 0 waits forever.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout < 0 {
		timeout = 0
	}
	id, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", err
	}
	return id, nil
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	return q.rdb.LRem(ctx, q.processingKey, 1, jobID).Err()
}

// RequeueStale moves up to limit ids from processing back to the queue. It is
// the reaper for workers that died between claim and ack: at-least-once
// delivery, with the runner refusing jobs that already left PENDING.
func (q *redisQueue) RequeueStale(ctx context.Context, limit int64) (int64, error) {
	var moved int64
	for i := int64(0); i < limit; i++ {
		_, err := q.rdb.RPopLPush(ctx, q.processingKey, q.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// memoryQueue serves DISPATCH_MODE=inline, where the API process runs the
// workers itself. Nothing survives a restart.
type memoryQueue struct {
	ch chan string
}

func NewMemoryQueue(size int) Queue {
	if size <= 0 {
		size = 1024
	}
	return &memoryQueue{ch: make(chan string, size)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memoryQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	select {
	case id := <-q.ch:
		return id, nil
	case <-expire:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *memoryQueue) Ack(context.Context, string) error { return nil }

func (q *memoryQueue) RequeueStale(context.Context, int64) (int64, error) { return 0, nil }
