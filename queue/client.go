package queue

import (
	"context"
	"time"
)

// Retry policy for settlement jobs.
const (
	SettlementAttempts = 5
	SettlementBackoff  = 2 * time.Second
)

// Client enqueues pipeline jobs on a Backend.
type Client struct {
	backend Backend
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

func (c *Client) EnqueuePayment(ctx context.Context, paymentID string) error {
	return c.backend.Push(ctx, NewJob(QueuePayments, paymentID, SettlementAttempts, SettlementBackoff, 0))
}

func (c *Client) EnqueueRefund(ctx context.Context, refundID string) error {
	return c.backend.Push(ctx, NewJob(QueueRefunds, refundID, SettlementAttempts, SettlementBackoff, 0))
}

// EnqueueWebhook schedules one delivery attempt. Webhook retries are
// tracked on the log row, so the job itself never retries.
func (c *Client) EnqueueWebhook(ctx context.Context, logID string, delay time.Duration) error {
	return c.backend.Push(ctx, NewJob(QueueWebhooks, logID, 1, 0, delay))
}

func (c *Client) Stats(ctx context.Context, queue string) (Stats, error) {
	return c.backend.Stats(ctx, queue)
}
