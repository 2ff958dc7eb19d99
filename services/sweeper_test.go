package services

import (
	"context"
	"testing"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSweeperRequeuesStaleWork(t *testing.T) {
	store := setupStore(t)
	seedMerchant(t, store, "")
	ctx := context.Background()

	stale := seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusProcessing)
	seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusSuccess)
	refund := &models.Refund{ID: "rfnd_stale", PaymentID: stale.ID, MerchantID: testMerchantID, Amount: 100, Status: models.RefundStatusPending}
	require.NoError(t, store.Refunds.Create(ctx, refund))
	due := time.Now()
	log := &models.WebhookLog{ID: "wh_1", MerchantID: testMerchantID, Event: models.EventPaymentCreated, Payload: datatypes.JSON(`{}`), Status: models.WebhookStatusPending, NextRetryAt: &due}
	require.NoError(t, store.WebhookLogs.Create(ctx, log))

	jobs := &fakeJobs{}
	sweeper := NewSweeper(store, jobs, time.Minute)
	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }

	assert.Equal(t, 3, sweeper.Sweep(ctx))
	assert.Equal(t, []string{stale.ID}, jobs.payments)
	assert.Equal(t, []string{refund.ID}, jobs.refunds)
	assert.Equal(t, []string{log.ID}, jobs.webhooks)

	fresh := &fakeJobs{}
	sweeper = NewSweeper(store, fresh, time.Minute)
	assert.Zero(t, sweeper.Sweep(ctx))
}

func TestSweeperStop(t *testing.T) {
	store := setupStore(t)
	seedMerchant(t, store, "")
	seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusPending)

	jobs := &fakeJobs{}
	sweeper := NewSweeper(store, jobs, 10*time.Millisecond)
	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }
	sweeper.Start(context.Background())

	require.Eventually(t, func() bool {
		jobs.mu.Lock()
		defer jobs.mu.Unlock()
		return len(jobs.payments) > 0
	}, 2*time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()

	jobs.mu.Lock()
	swept := len(jobs.payments)
	jobs.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	jobs.mu.Lock()
	assert.Equal(t, swept, len(jobs.payments))
	jobs.mu.Unlock()

	idle := NewSweeper(store, &fakeJobs{}, 0)
	idle.Start(context.Background())
	idle.Stop()
}

type staticStats map[string]queue.Stats

func (s staticStats) Stats(_ context.Context, name string) (queue.Stats, error) {
	return s[name], nil
}

func TestPipelineMonitor(t *testing.T) {
	store := setupStore(t)
	seedMerchant(t, store, "")
	seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusPending)
	seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusSuccess)
	seedPaymentWithStatus(t, store, testMerchantID, 50000, models.PaymentStatusSuccess)

	stats := staticStats{queue.QueuePayments: {Waiting: 2, Delayed: 1, Active: 1, Completed: 7, Failed: 1}}
	monitor := NewPipelineMonitor(stats, store, time.Minute)
	ctx := context.Background()

	status, err := monitor.JobStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, &JobStatus{Pending: 3, Processing: 1, Completed: 7, Failed: 1, WorkerStatus: "running"}, status)

	m, err := monitor.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Payments[models.PaymentStatusSuccess])
	assert.Equal(t, int64(1), m.Payments[models.PaymentStatusPending])
	assert.Len(t, m.Queues, 3)
	assert.Equal(t, int64(1), m.Queues[queue.QueuePayments].Failed)
}
