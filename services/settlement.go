package services

import (
	"context"
	"fmt"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

// Failure details written on declined payments.
const (
	DeclineCode        = "PAYMENT_DECLINED"
	DeclineDescription = "Payment declined by bank"
)

// SettlementProcessor resolves pending payments. It is the handler of the
// payments queue.
type SettlementProcessor struct {
	store   *repository.Store
	decider OutcomeDecider
	sim     SimulationConfig
	events  EventEmitter
	live    LivePublisher
	sleep   func(context.Context, time.Duration) error
}

func NewSettlementProcessor(store *repository.Store, decider OutcomeDecider, sim SimulationConfig, events EventEmitter, live LivePublisher) *SettlementProcessor {
	return &SettlementProcessor{
		store:   store,
		decider: decider,
		sim:     sim,
		events:  events,
		live:    orNoop(live),
		sleep:   sleepContext,
	}
}

// Process claims the payment (pending -> processing), waits out the
// simulated latency and writes the outcome. Every write is guarded on the
// current status, so a duplicate job can never flip a terminal payment.
func (p *SettlementProcessor) Process(ctx context.Context, paymentID string) error {
	payment, err := p.store.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", paymentID, err)
	}

	entry := utils.InfoLogger.WithFields(logrus.Fields{"payment_id": paymentID, "method": payment.Method})
	if payment.IsTerminal() {
		entry.Infof("Payment already %s; skipping", payment.Status)
		return nil
	}

	if payment.Status == models.PaymentStatusPending {
		claimed, err := p.store.Payments.TransitionStatus(ctx, paymentID, models.PaymentStatusPending, models.PaymentStatusProcessing)
		if err != nil {
			return fmt.Errorf("claim payment %s: %w", paymentID, err)
		}
		if !claimed {
			entry.Info("Payment claimed elsewhere; skipping")
			return nil
		}
		p.publish(ctx, paymentID)
	}

	delay := p.sim.paymentDelay()
	entry.Infof("Processing payment (simulated %s)", delay.Round(time.Millisecond))
	if err := p.sleep(ctx, delay); err != nil {
		return err
	}

	status := models.PaymentStatusSuccess
	var code, desc *string
	if p.decider.Decide(payment.Method, p.sim.TestMode) == OutcomeFailed {
		status = models.PaymentStatusFailed
		c, d := DeclineCode, DeclineDescription
		code, desc = &c, &d
	}

	written, err := p.store.Payments.Finalize(ctx, paymentID, status, code, desc)
	if err != nil {
		return fmt.Errorf("finalize payment %s: %w", paymentID, err)
	}
	if !written {
		entry.Info("Payment finalized elsewhere; skipping")
		return nil
	}
	entry.WithField("status", status).Info("Payment settled")

	updated, err := p.store.Payments.FindByID(ctx, paymentID)
	if err != nil {
		utils.ErrorLogger.WithField("payment_id", paymentID).Errorf("Failed to reload settled payment: %v", err)
		return nil
	}

	event := models.EventPaymentSuccess
	if status == models.PaymentStatusFailed {
		event = models.EventPaymentFailed
	}
	view := NewPaymentView(updated)
	if _, err := p.events.Emit(ctx, updated.MerchantID, event, map[string]interface{}{"payment": view}); err != nil {
		utils.ErrorLogger.WithField("payment_id", paymentID).Errorf("Failed to emit %s: %v", event, err)
	}
	p.live.Publish(ctx, updated.MerchantID, LivePaymentUpdated, view)
	return nil
}

func (p *SettlementProcessor) publish(ctx context.Context, paymentID string) {
	payment, err := p.store.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return
	}
	p.live.Publish(ctx, payment.MerchantID, LivePaymentUpdated, NewPaymentView(payment))
}
