package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Queue names.
const (
	QueuePayments = "payments"
	QueueRefunds  = "refunds"
	QueueWebhooks = "webhooks"
)

var ErrClosed = errors.New("queue: backend closed")

// Job references one ledger entity. Handlers re-read everything else.
type Job struct {
	ID          string        `json:"id"`
	Queue       string        `json:"queue"`
	EntityID    string        `json:"entity_id"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
	RunAt       time.Time     `json:"run_at"`
	EnqueuedAt  time.Time     `json:"enqueued_at"`
}

func NewJob(queue, entityID string, maxAttempts int, backoff, delay time.Duration) *Job {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Queue:       queue,
		EntityID:    entityID,
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		RunAt:       now.Add(delay),
		EnqueuedAt:  now,
	}
}

// RetryDelay is Backoff * 2^(Attempt-1) for the attempts already made.
func (j *Job) RetryDelay() time.Duration {
	if j.Attempt <= 1 {
		return j.Backoff
	}
	return j.Backoff << uint(j.Attempt-1)
}

type Stats struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Backend is a durable or in-process job store for named queues.
type Backend interface {
	// Push stores a job, delaying it until job.RunAt.
	Push(ctx context.Context, job *Job) error
	// Pop blocks for a ready job. It may return nil, nil when its poll
	// window elapses without one.
	Pop(ctx context.Context, queue string) (*Job, error)
	// Complete finishes a popped job; a non-nil cause marks it failed.
	Complete(ctx context.Context, job *Job, cause error) error
	// Requeue returns a popped job to the queue at job.RunAt.
	Requeue(ctx context.Context, job *Job) error
	// Lock takes a mutual-exclusion lease on key.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), acquired bool, err error)
	Stats(ctx context.Context, queue string) (Stats, error)
	Close() error
}
