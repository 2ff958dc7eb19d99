package repository

import (
	"context"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepository interface {
	FindActive(ctx context.Context, key, merchantID string, now time.Time) (*models.IdempotencyKey, error)
	DeleteExpired(ctx context.Context, key, merchantID string, now time.Time) error
	Upsert(ctx context.Context, record *models.IdempotencyKey) error
}

type gormIdempotencyRepo struct {
	db *gorm.DB
}

func NewGormIdempotencyRepo(db *gorm.DB) IdempotencyRepository {
	return &gormIdempotencyRepo{db: db}
}

func (r *gormIdempotencyRepo) FindActive(ctx context.Context, key, merchantID string, now time.Time) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND merchant_id = ? AND expires_at > ?", key, merchantID, now).
		First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *gormIdempotencyRepo) DeleteExpired(ctx context.Context, key, merchantID string, now time.Time) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND merchant_id = ? AND expires_at <= ?", key, merchantID, now).
		Delete(&models.IdempotencyKey{}).Error
}

func (r *gormIdempotencyRepo) Upsert(ctx context.Context, record *models.IdempotencyKey) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}, {Name: "merchant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "expires_at"}),
	}).Create(record).Error
}
