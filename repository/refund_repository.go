package repository

import (
	"context"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
)

type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Refund, error)
	FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Refund, error)
	// SumActiveAmount totals pending and processed refunds of a payment.
	SumActiveAmount(ctx context.Context, paymentID string) (int64, error)
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) (bool, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Refund, error)
}

type gormRefundRepo struct {
	db *gorm.DB
}

func NewGormRefundRepo(db *gorm.DB) RefundRepository {
	return &gormRefundRepo{db: db}
}

func (r *gormRefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *gormRefundRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Refund{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *gormRefundRepo) FindByID(ctx context.Context, id string) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error; err != nil {
		return nil, translate(err)
	}
	return &refund, nil
}

func (r *gormRefundRepo) FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&refund).Error; err != nil {
		return nil, translate(err)
	}
	return &refund, nil
}

func (r *gormRefundRepo) SumActiveAmount(ctx context.Context, paymentID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Refund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_id = ? AND status IN ?", paymentID, []string{models.RefundStatusPending, models.RefundStatusProcessed}).
		Scan(&total).Error
	return total, err
}

func (r *gormRefundRepo) MarkProcessed(ctx context.Context, id string, processedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, models.RefundStatusPending).
		Updates(map[string]interface{}{
			"status":       models.RefundStatusProcessed,
			"processed_at": processedAt,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *gormRefundRepo) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.RefundStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&refunds).Error
	return refunds, err
}
