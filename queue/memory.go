package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

const memoryIdleWait = time.Second

type jobHeap []*Job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].RunAt.Before(h[j].RunAt) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*Job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

type memoryQueue struct {
	jobs      jobHeap
	wake      chan struct{}
	active    int64
	completed int64
	failed    int64
}

// MemoryBackend keeps jobs in process. Used for single-process runs and tests.
type MemoryBackend struct {
	mu     sync.Mutex
	queues map[string]*memoryQueue
	locks  map[string]time.Time
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		queues: make(map[string]*memoryQueue),
		locks:  make(map[string]time.Time),
	}
}

// queue must be called with mu held.
func (b *MemoryBackend) queue(name string) *memoryQueue {
	q, ok := b.queues[name]
	if !ok {
		q = &memoryQueue{wake: make(chan struct{})}
		b.queues[name] = q
	}
	return q
}

// broadcast must be called with mu held.
func (q *memoryQueue) broadcast() {
	close(q.wake)
	q.wake = make(chan struct{})
}

func (b *MemoryBackend) Push(ctx context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	q := b.queue(job.Queue)
	heap.Push(&q.jobs, job)
	q.broadcast()
	return nil
}

func (b *MemoryBackend) Pop(ctx context.Context, name string) (*Job, error) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, ErrClosed
		}
		q := b.queue(name)
		wait := memoryIdleWait
		if q.jobs.Len() > 0 {
			next := q.jobs[0]
			now := time.Now()
			if !next.RunAt.After(now) {
				heap.Pop(&q.jobs)
				q.active++
				b.mu.Unlock()
				return next, nil
			}
			if d := next.RunAt.Sub(now); d < wait {
				wait = d
			}
		}
		wake := q.wake
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (b *MemoryBackend) Complete(ctx context.Context, job *Job, cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue(job.Queue)
	q.active--
	if cause != nil {
		q.failed++
	} else {
		q.completed++
	}
	return nil
}

func (b *MemoryBackend) Requeue(ctx context.Context, job *Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	q := b.queue(job.Queue)
	q.active--
	heap.Push(&q.jobs, job)
	q.broadcast()
	return nil
}

func (b *MemoryBackend) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if expires, held := b.locks[key]; held && expires.After(now) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	b.locks[key] = expires

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.locks[key].Equal(expires) {
				delete(b.locks, key)
			}
		})
	}
	return unlock, true, nil
}

func (b *MemoryBackend) Stats(ctx context.Context, name string) (Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queue(name)
	stats := Stats{Active: q.active, Completed: q.completed, Failed: q.failed}
	now := time.Now()
	for _, job := range q.jobs {
		if job.RunAt.After(now) {
			stats.Delayed++
		} else {
			stats.Waiting++
		}
	}
	return stats, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, q := range b.queues {
		q.broadcast()
	}
	return nil
}
