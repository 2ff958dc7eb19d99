package database

import (
	"errors"
	"fmt"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestMerchantID is the fixed ID of the seeded sandbox merchant.
const TestMerchantID = "550e8400-e29b-41d4-a716-446655440000"

const testWebhookSecret = "whsec_test_abc123"

// TestMerchantSeed holds credentials for the sandbox merchant.
type TestMerchantSeed struct {
	Email     string
	APIKey    string
	APISecret string
	Password  string
}

func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Merchant{},
		&models.Order{},
		&models.Payment{},
		&models.Refund{},
		&models.WebhookLog{},
		&models.IdempotencyKey{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedTestMerchant inserts the sandbox merchant unless it already exists.
func SeedTestMerchant(db *gorm.DB, seed TestMerchantSeed) error {
	var existing models.Merchant
	err := db.Where("id = ?", TestMerchantID).First(&existing).Error
	if err == nil {
		utils.InfoLogger.Println("Test merchant already seeded")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash test merchant password: %w", err)
	}

	merchant := models.Merchant{
		ID:            TestMerchantID,
		Name:          "Test Merchant",
		Email:         seed.Email,
		PasswordHash:  string(hash),
		APIKey:        seed.APIKey,
		APISecret:     seed.APISecret,
		WebhookSecret: testWebhookSecret,
		IsActive:      true,
	}
	if err := db.Create(&merchant).Error; err != nil {
		return fmt.Errorf("seed test merchant: %w", err)
	}

	utils.InfoLogger.WithField("merchant_id", merchant.ID).Info("Test merchant seeded")
	return nil
}
