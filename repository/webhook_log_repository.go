package repository

import (
	"context"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
)

// DeliveryAttempt is the outcome of one webhook POST.
type DeliveryAttempt struct {
	Status       string
	Attempts     int
	AttemptedAt  time.Time
	NextRetryAt  *time.Time
	ResponseCode *int
	ResponseBody *string
}

type WebhookLogRepository interface {
	Create(ctx context.Context, log *models.WebhookLog) error
	FindByID(ctx context.Context, id string) (*models.WebhookLog, error)
	FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.WebhookLog, error)
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.WebhookLog, int64, error)

	// RecordAttempt applies an attempt only if the log is still pending at
	// the same attempts count and generation, so neither a duplicated job
	// nor an attempt that straddled a reset can count.
	RecordAttempt(ctx context.Context, id string, previousAttempts, generation int, attempt DeliveryAttempt) (bool, error)
	ResetForRetry(ctx context.Context, id, merchantID string, now time.Time) (bool, error)

	CountByStatus(ctx context.Context) (map[string]int64, error)
	FindDue(ctx context.Context, dueBefore time.Time, limit int) ([]models.WebhookLog, error)
}

type gormWebhookLogRepo struct {
	db *gorm.DB
}

func NewGormWebhookLogRepo(db *gorm.DB) WebhookLogRepository {
	return &gormWebhookLogRepo{db: db}
}

func (r *gormWebhookLogRepo) Create(ctx context.Context, log *models.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *gormWebhookLogRepo) FindByID(ctx context.Context, id string) (*models.WebhookLog, error) {
	var log models.WebhookLog
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (r *gormWebhookLogRepo) FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.WebhookLog, error) {
	var log models.WebhookLog
	if err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&log).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (r *gormWebhookLogRepo) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]models.WebhookLog, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.WebhookLog{}).Where("merchant_id = ?", merchantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.WebhookLog
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, total, err
}

func (r *gormWebhookLogRepo) RecordAttempt(ctx context.Context, id string, previousAttempts, generation int, attempt DeliveryAttempt) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("id = ? AND status = ? AND attempts = ? AND generation = ?", id, models.WebhookStatusPending, previousAttempts, generation).
		Updates(map[string]interface{}{
			"status":          attempt.Status,
			"attempts":        attempt.Attempts,
			"last_attempt_at": attempt.AttemptedAt,
			"next_retry_at":   attempt.NextRetryAt,
			"response_code":   attempt.ResponseCode,
			"response_body":   attempt.ResponseBody,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *gormWebhookLogRepo) ResetForRetry(ctx context.Context, id, merchantID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		Updates(map[string]interface{}{
			"status":          models.WebhookStatusPending,
			"attempts":        0,
			"generation":      gorm.Expr("generation + 1"),
			"next_retry_at":   now,
			"last_attempt_at": nil,
			"response_code":   nil,
			"response_body":   nil,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *gormWebhookLogRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.WebhookLog{}).
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

func (r *gormWebhookLogRepo) FindDue(ctx context.Context, dueBefore time.Time, limit int) ([]models.WebhookLog, error) {
	var logs []models.WebhookLog
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at < ?", models.WebhookStatusPending, dueBefore).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
