package models

import (
	"time"

	"gorm.io/datatypes"
)

const IdempotencyTTL = 24 * time.Hour

type IdempotencyKey struct {
	Key        string         `gorm:"column:idempotency_key;type:varchar(255);primaryKey"`
	MerchantID string         `gorm:"type:varchar(64);primaryKey"`
	Response   datatypes.JSON `gorm:"type:text;not null"`
	ExpiresAt  time.Time      `gorm:"index;not null"`
	CreatedAt  time.Time
}
