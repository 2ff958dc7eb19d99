package models

import "time"

type Merchant struct {
	ID            string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Email         string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash  string    `json:"-" gorm:"type:varchar(255)"`
	APIKey        string    `json:"api_key" gorm:"type:varchar(64);uniqueIndex;not null"`
	APISecret     string    `json:"-" gorm:"type:varchar(64);not null"`
	WebhookURL    *string   `json:"webhook_url" gorm:"type:text"`
	WebhookSecret string    `json:"-" gorm:"type:varchar(64)"`
	IsActive      bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasWebhook reports whether events should be emitted for the merchant.
func (m *Merchant) HasWebhook() bool {
	return m.WebhookURL != nil && *m.WebhookURL != ""
}
