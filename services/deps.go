package services

import (
	"context"
	"time"
)

// JobEnqueuer schedules pipeline jobs. queue.Client implements it.
type JobEnqueuer interface {
	EnqueuePayment(ctx context.Context, paymentID string) error
	EnqueueRefund(ctx context.Context, refundID string) error
	EnqueueWebhook(ctx context.Context, logID string, delay time.Duration) error
}

// EventEmitter records a merchant webhook event for delivery.
type EventEmitter interface {
	Emit(ctx context.Context, merchantID, event string, data interface{}) (EmitResult, error)
}

// LivePublisher pushes state changes to connected dashboards.
type LivePublisher interface {
	Publish(ctx context.Context, merchantID, event string, data interface{})
}

// Dashboard event names.
const (
	LivePaymentUpdated = "payment.updated"
	LiveRefundUpdated  = "refund.updated"
	LiveWebhookUpdated = "webhook.updated"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, interface{}) {}

func orNoop(p LivePublisher) LivePublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
