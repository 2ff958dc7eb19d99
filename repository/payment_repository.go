package repository

import (
	"context"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Payment, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]models.Payment, error)

	// TransitionStatus moves a payment from one status to another and
	// reports false when the row was no longer in the expected status.
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)
	// Finalize writes a terminal status over a processing payment.
	Finalize(ctx context.Context, id, status string, errorCode, errorDescription *string) (bool, error)
	MarkCaptured(ctx context.Context, id, merchantID string) error

	CountByStatus(ctx context.Context) (map[string]int64, error)
	FindStale(ctx context.Context, statuses []string, updatedBefore time.Time, limit int) ([]models.Payment, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormPaymentRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *gormPaymentRepo) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *gormPaymentRepo) ListByMerchant(ctx context.Context, merchantID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *gormPaymentRepo) TransitionStatus(ctx context.Context, id, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *gormPaymentRepo) Finalize(ctx context.Context, id, status string, errorCode, errorDescription *string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusProcessing).
		Updates(map[string]interface{}{
			"status":            status,
			"error_code":        errorCode,
			"error_description": errorDescription,
			"updated_at":        time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *gormPaymentRepo) MarkCaptured(ctx context.Context, id, merchantID string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND merchant_id = ? AND status = ?", id, merchantID, models.PaymentStatusSuccess).
		Updates(map[string]interface{}{
			"captured":   true,
			"updated_at": time.Now(),
		}).Error
}

func (r *gormPaymentRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *gormPaymentRepo) FindStale(ctx context.Context, statuses []string, updatedBefore time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
