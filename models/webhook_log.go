package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	WebhookStatusPending = "pending"
	WebhookStatusSuccess = "success"
	WebhookStatusFailed  = "failed"
)

// Event names.
const (
	EventPaymentCreated  = "payment.created"
	EventPaymentPending  = "payment.pending"
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
	EventWebhookTest     = "webhook.test"
)

// WebhookLog is the whole delivery history of one event occurrence.
// Payload is kept as text so the signed bytes survive the round trip.
type WebhookLog struct {
	ID            string         `json:"id" gorm:"type:varchar(64);primaryKey"`
	MerchantID    string         `json:"merchant_id" gorm:"type:varchar(64);index;not null"`
	Event         string         `json:"event" gorm:"type:varchar(50);not null"`
	Payload       datatypes.JSON `json:"payload" gorm:"type:text;not null"`
	Status        string         `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	Attempts      int            `json:"attempts" gorm:"not null;default:0"`
	// Generation is bumped by every manual reset.
	Generation    int            `json:"-" gorm:"not null;default:0"`
	LastAttemptAt *time.Time     `json:"last_attempt_at"`
	NextRetryAt   *time.Time     `json:"next_retry_at" gorm:"index"`
	ResponseCode  *int           `json:"response_code"`
	ResponseBody  *string        `json:"response_body" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
}
