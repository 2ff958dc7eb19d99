package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
)

// Envelope is the webhook body. Field order is part of the signed bytes.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// PaymentView is the public projection of a payment. Card numbers never
// reach it; only network and last four digits.
type PaymentView struct {
	ID               string    `json:"id"`
	OrderID          string    `json:"order_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Method           string    `json:"method"`
	Status           string    `json:"status"`
	VPA              *string   `json:"vpa,omitempty"`
	CardNetwork      *string   `json:"card_network,omitempty"`
	CardLast4        *string   `json:"card_last4,omitempty"`
	Captured         bool      `json:"captured"`
	ErrorCode        *string   `json:"error_code,omitempty"`
	ErrorDescription *string   `json:"error_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewPaymentView(p *models.Payment) PaymentView {
	return PaymentView{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Method:           p.Method,
		Status:           p.Status,
		VPA:              p.VPA,
		CardNetwork:      p.CardNetwork,
		CardLast4:        p.CardLast4,
		Captured:         p.Captured,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
}

// PublicPaymentView is what the hosted checkout may poll.
type PublicPaymentView struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type RefundView struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"payment_id"`
	Amount      int64      `json:"amount"`
	Reason      *string    `json:"reason"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

func NewRefundView(r *models.Refund) RefundView {
	view := RefundView{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Reason:    r.Reason,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.ProcessedAt != nil {
		at := r.ProcessedAt.UTC()
		view.ProcessedAt = &at
	}
	return view
}

type OrderView struct {
	ID         string          `json:"id"`
	MerchantID string          `json:"merchant_id"`
	Amount     int64           `json:"amount"`
	Currency   string          `json:"currency"`
	Receipt    *string         `json:"receipt"`
	Notes      json.RawMessage `json:"notes"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

func NewOrderView(o *models.Order) OrderView {
	notes := json.RawMessage(o.Notes)
	if len(notes) == 0 {
		notes = json.RawMessage("{}")
	}
	return OrderView{
		ID:         o.ID,
		MerchantID: o.MerchantID,
		Amount:     o.Amount,
		Currency:   o.Currency,
		Receipt:    o.Receipt,
		Notes:      notes,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt.UTC(),
	}
}

type PublicOrderView struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type WebhookLogView struct {
	ID            string     `json:"id"`
	Event         string     `json:"event"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	NextRetryAt   *time.Time `json:"next_retry_at"`
	ResponseCode  *int       `json:"response_code"`
}

func NewWebhookLogView(l *models.WebhookLog) WebhookLogView {
	return WebhookLogView{
		ID:            l.ID,
		Event:         l.Event,
		Status:        l.Status,
		Attempts:      l.Attempts,
		CreatedAt:     l.CreatedAt.UTC(),
		LastAttemptAt: utcPtr(l.LastAttemptAt),
		NextRetryAt:   utcPtr(l.NextRetryAt),
		ResponseCode:  l.ResponseCode,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// FlexString accepts a JSON string or number, e.g. an expiry month.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(strings.TrimSpace(n.String()))
	return nil
}
