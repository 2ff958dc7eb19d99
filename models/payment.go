package models

import "time"

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSuccess    = "success"
	PaymentStatusFailed     = "failed"

	MethodUPI  = "upi"
	MethodCard = "card"
)

// Payment never holds the full card number or CVV.
type Payment struct {
	ID               string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	OrderID          string    `json:"order_id" gorm:"type:varchar(64);index;not null"`
	MerchantID       string    `json:"merchant_id" gorm:"type:varchar(64);index;not null"`
	Amount           int64     `json:"amount" gorm:"not null"`
	Currency         string    `json:"currency" gorm:"type:varchar(3);not null"`
	Method           string    `json:"method" gorm:"type:varchar(20);not null"`
	Status           string    `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	VPA              *string   `json:"vpa" gorm:"type:varchar(255)"`
	CardNetwork      *string   `json:"card_network" gorm:"type:varchar(20)"`
	CardLast4        *string   `json:"card_last4" gorm:"type:varchar(4)"`
	Captured         bool      `json:"captured" gorm:"not null;default:false"`
	ErrorCode        *string   `json:"error_code" gorm:"type:varchar(50)"`
	ErrorDescription *string   `json:"error_description" gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"index"`
}

// IsTerminal reports whether settlement has resolved the payment.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
