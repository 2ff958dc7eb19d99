package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Store bundles the ledger repositories over one connection.
type Store struct {
	db *gorm.DB

	Merchants   MerchantRepository
	Orders      OrderRepository
	Payments    PaymentRepository
	Refunds     RefundRepository
	WebhookLogs WebhookLogRepository
	Idempotency IdempotencyRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Merchants:   NewGormMerchantRepo(db),
		Orders:      NewGormOrderRepo(db),
		Payments:    NewGormPaymentRepo(db),
		Refunds:     NewGormRefundRepo(db),
		WebhookLogs: NewGormWebhookLogRepo(db),
		Idempotency: NewGormIdempotencyRepo(db),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
