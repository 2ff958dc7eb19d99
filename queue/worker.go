package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultLockTTL         = 2 * time.Minute
	defaultContentionDelay = time.Second
	errorPause             = time.Second
)

// Handler processes the entity referenced by a job.
type Handler func(ctx context.Context, entityID string) error

// Worker consumes one queue. At most one job per entity runs at a time
// across all workers sharing the backend.
type Worker struct {
	backend     Backend
	queue       string
	handler     Handler
	concurrency int

	LockTTL         time.Duration
	ContentionDelay time.Duration

	log *logrus.Entry
}

func NewWorker(backend Backend, queue string, handler Handler, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		backend:         backend,
		queue:           queue,
		handler:         handler,
		concurrency:     concurrency,
		LockTTL:         defaultLockTTL,
		ContentionDelay: defaultContentionDelay,
		log:             utils.InfoLogger.WithField("queue", queue),
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	w.log.Infof("Worker started with concurrency %d", w.concurrency)
	wg.Wait()
	w.log.Info("Worker drained")
}

func (w *Worker) loop(ctx context.Context) {
	for {
		job, err := w.backend.Pop(ctx, w.queue)
		if ctx.Err() != nil {
			if job != nil {
				// Popped during shutdown; hand it back untouched.
				_ = w.backend.Requeue(context.WithoutCancel(ctx), job)
			}
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			utils.ErrorLogger.WithField("queue", w.queue).Errorf("Pop failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorPause):
			}
			continue
		}
		if job == nil {
			continue
		}
		w.process(context.WithoutCancel(ctx), job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	entry := utils.ErrorLogger.WithFields(logrus.Fields{
		"queue":     w.queue,
		"job_id":    job.ID,
		"entity_id": job.EntityID,
		"attempt":   job.Attempt + 1,
	})

	unlock, acquired, err := w.backend.Lock(ctx, w.queue+":"+job.EntityID, w.LockTTL)
	if err != nil || !acquired {
		if err != nil {
			entry.Warnf("Lock failed: %v", err)
		}
		job.RunAt = time.Now().Add(w.ContentionDelay)
		if rerr := w.backend.Requeue(ctx, job); rerr != nil {
			entry.Errorf("Requeue after lock contention failed: %v", rerr)
		}
		return
	}

	herr := w.handler(ctx, job.EntityID)
	unlock()

	if herr == nil {
		if err := w.backend.Complete(ctx, job, nil); err != nil {
			entry.Warnf("Complete failed: %v", err)
		}
		return
	}

	job.Attempt++
	if job.Attempt < job.MaxAttempts {
		delay := job.RetryDelay()
		job.RunAt = time.Now().Add(delay)
		entry.Warnf("Job failed, retrying in %s: %v", delay, herr)
		if err := w.backend.Requeue(ctx, job); err != nil {
			entry.Errorf("Requeue failed: %v", err)
		}
		return
	}

	entry.Errorf("Job failed permanently after %d attempts: %v", job.Attempt, herr)
	if err := w.backend.Complete(ctx, job, herr); err != nil {
		entry.Warnf("Complete failed: %v", err)
	}
}
