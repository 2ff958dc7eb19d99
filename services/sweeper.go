package services

import (
	"context"
	"sync"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
)

const sweepBatch = 100

// Sweeper re-enqueues work whose job was lost, e.g. after a failed enqueue
// or a crash. Handlers are guarded on status, so duplicates are harmless.
type Sweeper struct {
	store    *repository.Store
	jobs     JobEnqueuer
	Interval time.Duration
	Grace    time.Duration
	StopChan chan struct{}
	now      func() time.Time

	stopOnce sync.Once
	done     chan struct{}
}

func NewSweeper(store *repository.Store, jobs JobEnqueuer, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		jobs:     jobs,
		Interval: interval,
		Grace:    2 * time.Minute,
		StopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs the sweep loop in a goroutine until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s.Interval <= 0 {
		utils.InfoLogger.Info("Sweeper disabled")
		return
	}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.StopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a sweep in progress to finish. It is
// safe to call more than once, and before or without Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.StopChan) })
	if s.done != nil {
		<-s.done
	}
	utils.InfoLogger.Info("Sweeper stopped")
}

// Sweep makes one pass and returns how many jobs were re-enqueued.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.Grace)
	requeued := 0

	payments, err := s.store.Payments.FindStale(ctx, []string{models.PaymentStatusPending, models.PaymentStatusProcessing}, cutoff, sweepBatch)
	if err != nil {
		utils.ErrorLogger.Errorf("Sweeper: load stale payments: %v", err)
	}
	for _, p := range payments {
		if err := s.jobs.EnqueuePayment(ctx, p.ID); err != nil {
			utils.ErrorLogger.WithField("payment_id", p.ID).Errorf("Sweeper: enqueue payment: %v", err)
			continue
		}
		requeued++
	}

	refunds, err := s.store.Refunds.FindStalePending(ctx, cutoff, sweepBatch)
	if err != nil {
		utils.ErrorLogger.Errorf("Sweeper: load stale refunds: %v", err)
	}
	for _, r := range refunds {
		if err := s.jobs.EnqueueRefund(ctx, r.ID); err != nil {
			utils.ErrorLogger.WithField("refund_id", r.ID).Errorf("Sweeper: enqueue refund: %v", err)
			continue
		}
		requeued++
	}

	logs, err := s.store.WebhookLogs.FindDue(ctx, cutoff, sweepBatch)
	if err != nil {
		utils.ErrorLogger.Errorf("Sweeper: load due webhooks: %v", err)
	}
	for _, l := range logs {
		if err := s.jobs.EnqueueWebhook(ctx, l.ID, 0); err != nil {
			utils.ErrorLogger.WithField("webhook_id", l.ID).Errorf("Sweeper: enqueue webhook: %v", err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		utils.InfoLogger.Infof("Sweeper re-enqueued %d jobs", requeued)
	}
	return requeued
}
