package repository

import (
	"context"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
)

type MerchantRepository interface {
	Create(ctx context.Context, merchant *models.Merchant) error
	FindByID(ctx context.Context, id string) (*models.Merchant, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error)
	FindByEmail(ctx context.Context, email string) (*models.Merchant, error)
	UpdateWebhookURL(ctx context.Context, id string, url *string) error
	UpdateWebhookSecret(ctx context.Context, id string, secret string) error
}

type gormMerchantRepo struct {
	db *gorm.DB
}

func NewGormMerchantRepo(db *gorm.DB) MerchantRepository {
	return &gormMerchantRepo{db: db}
}

func (r *gormMerchantRepo) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *gormMerchantRepo) FindByID(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error; err != nil {
		return nil, translate(err)
	}
	return &merchant, nil
}

func (r *gormMerchantRepo) FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&merchant).Error; err != nil {
		return nil, translate(err)
	}
	return &merchant, nil
}

func (r *gormMerchantRepo) FindByEmail(ctx context.Context, email string) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&merchant).Error; err != nil {
		return nil, translate(err)
	}
	return &merchant, nil
}

func (r *gormMerchantRepo) UpdateWebhookURL(ctx context.Context, id string, url *string) error {
	return r.db.WithContext(ctx).Model(&models.Merchant{}).
		Where("id = ?", id).
		Update("webhook_url", url).Error
}

func (r *gormMerchantRepo) UpdateWebhookSecret(ctx context.Context, id string, secret string) error {
	return r.db.WithContext(ctx).Model(&models.Merchant{}).
		Where("id = ?", id).
		Update("webhook_secret", secret).Error
}
