package repository

import (
	"context"

	"github.com/manasa1349/payment-gateway-task/models"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Order, error)
}

type gormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) OrderRepository {
	return &gormOrderRepo{db: db}
}

func (r *gormOrderRepo) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormOrderRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *gormOrderRepo) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrderRepo) FindByIDForMerchant(ctx context.Context, id, merchantID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}
