package models

import "time"

const (
	RefundStatusPending   = "pending"
	RefundStatusProcessed = "processed"
)

type Refund struct {
	ID          string     `json:"id" gorm:"type:varchar(64);primaryKey"`
	PaymentID   string     `json:"payment_id" gorm:"type:varchar(64);index;not null"`
	MerchantID  string     `json:"merchant_id" gorm:"type:varchar(64);index;not null"`
	Amount      int64      `json:"amount" gorm:"not null"`
	Reason      *string    `json:"reason" gorm:"type:text"`
	Status      string     `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}
