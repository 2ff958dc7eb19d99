package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

// RefundService tracks refunds against a payment's amount and settles them
// through the refunds queue.
type RefundService struct {
	store  *repository.Store
	jobs   JobEnqueuer
	events EventEmitter
	live   LivePublisher
	delay  DelayRange
	sleep  func(context.Context, time.Duration) error
	now    func() time.Time
}

func NewRefundService(store *repository.Store, jobs JobEnqueuer, events EventEmitter, live LivePublisher, delay DelayRange) *RefundService {
	return &RefundService{
		store:  store,
		jobs:   jobs,
		events: events,
		live:   orNoop(live),
		delay:  delay,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// CreateRefund rejects amounts that would push pending plus processed
// refunds past the payment amount. The sum check and insert are not
// atomic; two concurrent requests for one payment can both pass.
func (s *RefundService) CreateRefund(ctx context.Context, paymentID, merchantID string, amount int64, reason string) (*RefundView, error) {
	payment, err := s.store.Payments.FindByIDForMerchant(ctx, paymentID, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Payment not found")
	}
	if err != nil {
		return nil, Internal("Failed to load payment", err)
	}
	if payment.Status != models.PaymentStatusSuccess {
		return nil, BadRequest("Payment must be successful to refund")
	}
	if amount <= 0 {
		return nil, BadRequest("Refund amount must be positive")
	}

	refunded, err := s.store.Refunds.SumActiveAmount(ctx, paymentID)
	if err != nil {
		return nil, Internal("Failed to total refunds", err)
	}
	if amount+refunded > payment.Amount {
		return nil, BadRequest("Refund amount exceeds available amount")
	}

	refund := &models.Refund{
		PaymentID:  paymentID,
		MerchantID: merchantID,
		Amount:     amount,
		Status:     models.RefundStatusPending,
	}
	if r := strings.TrimSpace(reason); r != "" {
		refund.Reason = &r
	}
	refund.ID, err = uniqueID(ctx, utils.PrefixRefund, s.store.Refunds.Exists)
	if err != nil {
		return nil, Internal("Failed to allocate refund id", err)
	}
	if err := s.store.Refunds.Create(ctx, refund); err != nil {
		return nil, Internal("Failed to create refund", err)
	}

	view := NewRefundView(refund)
	if _, err := s.events.Emit(ctx, merchantID, models.EventRefundCreated, map[string]interface{}{"refund": view}); err != nil {
		utils.ErrorLogger.WithField("refund_id", refund.ID).Errorf("Failed to emit %s: %v", models.EventRefundCreated, err)
	}
	if err := s.jobs.EnqueueRefund(ctx, refund.ID); err != nil {
		utils.ErrorLogger.WithField("refund_id", refund.ID).Errorf("Failed to enqueue refund: %v", err)
	}
	s.live.Publish(ctx, merchantID, LiveRefundUpdated, view)

	utils.InfoLogger.WithFields(logrus.Fields{"refund_id": refund.ID, "payment_id": paymentID, "amount": amount}).Info("Refund created")
	return &view, nil
}

// GetRefund returns nil when the refund does not exist for the merchant.
func (s *RefundService) GetRefund(ctx context.Context, refundID, merchantID string) (*RefundView, error) {
	refund, err := s.store.Refunds.FindByIDForMerchant(ctx, refundID, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := NewRefundView(refund)
	return &view, nil
}

// ProcessRefund is the refunds queue handler. Errors are retried by the queue.
func (s *RefundService) ProcessRefund(ctx context.Context, refundID string) error {
	refund, err := s.store.Refunds.FindByID(ctx, refundID)
	if err != nil {
		return fmt.Errorf("load refund %s: %w", refundID, err)
	}
	entry := utils.InfoLogger.WithFields(logrus.Fields{"refund_id": refundID, "payment_id": refund.PaymentID})
	if refund.Status == models.RefundStatusProcessed {
		entry.Info("Refund already processed; skipping")
		return nil
	}

	payment, err := s.store.Payments.FindByID(ctx, refund.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", refund.PaymentID, err)
	}
	if payment.Status != models.PaymentStatusSuccess {
		return fmt.Errorf("payment %s is not refundable (status %s)", payment.ID, payment.Status)
	}

	if err := s.sleep(ctx, s.delay.Pick()); err != nil {
		return err
	}

	written, err := s.store.Refunds.MarkProcessed(ctx, refundID, s.now())
	if err != nil {
		return fmt.Errorf("mark refund %s processed: %w", refundID, err)
	}
	if !written {
		entry.Info("Refund processed elsewhere; skipping")
		return nil
	}
	entry.Info("Refund processed")

	updated, err := s.store.Refunds.FindByID(ctx, refundID)
	if err != nil {
		utils.ErrorLogger.WithField("refund_id", refundID).Errorf("Failed to reload refund: %v", err)
		return nil
	}
	view := NewRefundView(updated)
	if _, err := s.events.Emit(ctx, updated.MerchantID, models.EventRefundProcessed, map[string]interface{}{"refund": view}); err != nil {
		utils.ErrorLogger.WithField("refund_id", refundID).Errorf("Failed to emit %s: %v", models.EventRefundProcessed, err)
	}
	s.live.Publish(ctx, updated.MerchantID, LiveRefundUpdated, view)
	return nil
}
