package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OrderStatusCreated = "created"

	DefaultCurrency = "INR"
	MinOrderAmount  = 100
)

type Order struct {
	ID         string         `json:"id" gorm:"type:varchar(64);primaryKey"`
	MerchantID string         `json:"merchant_id" gorm:"type:varchar(64);index;not null"`
	Amount     int64          `json:"amount" gorm:"not null"`
	Currency   string         `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Receipt    *string        `json:"receipt" gorm:"type:varchar(255)"`
	Notes      datatypes.JSON `json:"notes"`
	Status     string         `json:"status" gorm:"type:varchar(20);not null;default:'created'"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
