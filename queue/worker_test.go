package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T, w *Worker) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestWorkerRetriesUntilSuccess(t *testing.T) {
	b := NewMemoryBackend()
	var calls int32
	w := NewWorker(b, QueuePayments, func(ctx context.Context, id string) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}, 1)
	stop := startWorker(t, w)
	defer stop()

	require.NoError(t, b.Push(context.Background(), NewJob(QueuePayments, "pay_1", 5, 5*time.Millisecond, 0)))

	assert.Eventually(t, func() bool {
		stats, _ := b.Stats(context.Background(), QueuePayments)
		return stats.Completed == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWorkerStopsAfterMaxAttempts(t *testing.T) {
	b := NewMemoryBackend()
	var calls int32
	w := NewWorker(b, QueueRefunds, func(ctx context.Context, id string) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("payment no longer successful")
	}, 2)
	stop := startWorker(t, w)
	defer stop()

	require.NoError(t, b.Push(context.Background(), NewJob(QueueRefunds, "rfnd_1", 3, time.Millisecond, 0)))

	assert.Eventually(t, func() bool {
		stats, _ := b.Stats(context.Background(), QueueRefunds)
		return stats.Failed == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWorkerSerializesSameEntity(t *testing.T) {
	b := NewMemoryBackend()
	var (
		mu       sync.Mutex
		running  = map[string]int{}
		overlaps int32
		done     int32
	)
	w := NewWorker(b, QueuePayments, func(ctx context.Context, id string) error {
		mu.Lock()
		running[id]++
		if running[id] > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running[id]--
		mu.Unlock()
		atomic.AddInt32(&done, 1)
		return nil
	}, 4)
	w.ContentionDelay = 5 * time.Millisecond
	stop := startWorker(t, w)
	defer stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Push(ctx, NewJob(QueuePayments, "pay_same", 1, 0, 0)))
	}
	require.NoError(t, b.Push(ctx, NewJob(QueuePayments, "pay_other", 1, 0, 0)))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlaps))
}

func TestClientJobShapes(t *testing.T) {
	b := NewMemoryBackend()
	c := NewClient(b)
	ctx := context.Background()

	require.NoError(t, c.EnqueuePayment(ctx, "pay_1"))
	job, err := b.Pop(ctx, QueuePayments)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", job.EntityID)
	assert.Equal(t, SettlementAttempts, job.MaxAttempts)
	assert.Equal(t, SettlementBackoff, job.Backoff)

	require.NoError(t, c.EnqueueWebhook(ctx, "wh_1", time.Hour))
	stats, err := c.Stats(ctx, QueueWebhooks)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Delayed)
}
