package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Merchant{},
		&models.Order{},
		&models.Payment{},
		&models.Refund{},
		&models.WebhookLog{},
		&models.IdempotencyKey{},
	))
	return NewStore(db)
}

func seedPayment(t *testing.T, s *Store, id, merchantID, status string) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID:         id,
		OrderID:    "order_1",
		MerchantID: merchantID,
		Amount:     50000,
		Currency:   "INR",
		Method:     models.MethodUPI,
		Status:     status,
	}
	require.NoError(t, s.Payments.Create(context.Background(), p))
	return p
}

func TestPaymentMerchantScoping(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedPayment(t, s, "pay_a", "m1", models.PaymentStatusPending)

	p, err := s.Payments.FindByIDForMerchant(ctx, "pay_a", "m1")
	require.NoError(t, err)
	assert.Equal(t, "pay_a", p.ID)

	_, err = s.Payments.FindByIDForMerchant(ctx, "pay_a", "m2")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := s.Payments.Exists(ctx, "pay_a")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPaymentGuardedTransitions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedPayment(t, s, "pay_a", "m1", models.PaymentStatusPending)

	ok, err := s.Payments.TransitionStatus(ctx, "pay_a", models.PaymentStatusPending, models.PaymentStatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Payments.TransitionStatus(ctx, "pay_a", models.PaymentStatusPending, models.PaymentStatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	ok, err = s.Payments.Finalize(ctx, "pay_a", models.PaymentStatusSuccess, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	code, desc := "PAYMENT_DECLINED", "declined"
	ok, err = s.Payments.Finalize(ctx, "pay_a", models.PaymentStatusFailed, &code, &desc)
	require.NoError(t, err)
	assert.False(t, ok, "terminal payment must not flip")

	p, err := s.Payments.FindByID(ctx, "pay_a")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, p.Status)
	assert.Nil(t, p.ErrorCode)
}

func TestPaymentCountAndStale(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seedPayment(t, s, "pay_a", "m1", models.PaymentStatusPending)
	seedPayment(t, s, "pay_b", "m1", models.PaymentStatusPending)
	seedPayment(t, s, "pay_c", "m1", models.PaymentStatusSuccess)

	counts, err := s.Payments.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.PaymentStatusPending])
	assert.Equal(t, int64(1), counts[models.PaymentStatusSuccess])

	stale, err := s.Payments.FindStale(ctx, []string{models.PaymentStatusPending}, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 2)

	stale, err = s.Payments.FindStale(ctx, []string{models.PaymentStatusPending}, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRefundSumAndProcess(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	total, err := s.Refunds.SumActiveAmount(ctx, "pay_a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	for _, r := range []models.Refund{
		{ID: "rfnd_1", PaymentID: "pay_a", MerchantID: "m1", Amount: 1000, Status: models.RefundStatusPending},
		{ID: "rfnd_2", PaymentID: "pay_a", MerchantID: "m1", Amount: 2000, Status: models.RefundStatusProcessed},
		{ID: "rfnd_3", PaymentID: "pay_b", MerchantID: "m1", Amount: 9000, Status: models.RefundStatusPending},
	} {
		r := r
		require.NoError(t, s.Refunds.Create(ctx, &r))
	}

	total, err = s.Refunds.SumActiveAmount(ctx, "pay_a")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)

	now := time.Now()
	ok, err := s.Refunds.MarkProcessed(ctx, "rfnd_1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Refunds.MarkProcessed(ctx, "rfnd_1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	r, err := s.Refunds.FindByIDForMerchant(ctx, "rfnd_1", "m1")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusProcessed, r.Status)
	require.NotNil(t, r.ProcessedAt)
}

func TestWebhookLogAttemptsAndReset(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	log := &models.WebhookLog{
		ID:          uuid.NewString(),
		MerchantID:  "m1",
		Event:       models.EventPaymentSuccess,
		Payload:     datatypes.JSON(`{"event":"payment.success","timestamp":1,"data":{}}`),
		Status:      models.WebhookStatusPending,
		NextRetryAt: &now,
	}
	require.NoError(t, s.WebhookLogs.Create(ctx, log))

	code := 500
	body := "boom"
	next := now.Add(time.Minute)
	ok, err := s.WebhookLogs.RecordAttempt(ctx, log.ID, 0, 0, DeliveryAttempt{
		Status: models.WebhookStatusPending, Attempts: 1, AttemptedAt: now,
		NextRetryAt: &next, ResponseCode: &code, ResponseBody: &body,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.WebhookLogs.RecordAttempt(ctx, log.ID, 0, 0, DeliveryAttempt{Status: models.WebhookStatusSuccess, Attempts: 1, AttemptedAt: now})
	require.NoError(t, err)
	assert.False(t, ok, "stale attempt count must be rejected")

	ok, err = s.WebhookLogs.ResetForRetry(ctx, log.ID, "m2", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.WebhookLogs.ResetForRetry(ctx, log.ID, "m1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.WebhookLogs.FindByID(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts)
	assert.Nil(t, got.ResponseCode)
	assert.Nil(t, got.ResponseBody)
	assert.Nil(t, got.LastAttemptAt)
	assert.Equal(t, `{"event":"payment.success","timestamp":1,"data":{}}`, string(got.Payload))
	assert.Equal(t, 1, got.Generation)

	// An attempt read before the reset carries the old generation.
	ok, err = s.WebhookLogs.RecordAttempt(ctx, log.ID, 0, 0, DeliveryAttempt{
		Status: models.WebhookStatusPending, Attempts: 1, AttemptedAt: now,
		NextRetryAt: &next, ResponseCode: &code, ResponseBody: &body,
	})
	require.NoError(t, err)
	assert.False(t, ok, "attempt from before the reset must be rejected")

	ok, err = s.WebhookLogs.RecordAttempt(ctx, log.ID, 0, 1, DeliveryAttempt{Status: models.WebhookStatusSuccess, Attempts: 1, AttemptedAt: now})
	require.NoError(t, err)
	assert.True(t, ok)

	logs, total, err := s.WebhookLogs.ListByMerchant(ctx, "m1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, logs, 1)
}

func TestIdempotencyUpsertAndExpiry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Idempotency.Upsert(ctx, &models.IdempotencyKey{
		Key: "k1", MerchantID: "m1", Response: datatypes.JSON(`{"id":"pay_old"}`), ExpiresAt: now.Add(-time.Hour),
	}))

	_, err := s.Idempotency.FindActive(ctx, "k1", "m1", now)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Idempotency.Upsert(ctx, &models.IdempotencyKey{
		Key: "k1", MerchantID: "m1", Response: datatypes.JSON(`{"id":"pay_new"}`), ExpiresAt: now.Add(time.Hour),
	}))

	rec, err := s.Idempotency.FindActive(ctx, "k1", "m1", now)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"pay_new"}`, string(rec.Response))

	_, err = s.Idempotency.FindActive(ctx, "k1", "m2", now)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Idempotency.DeleteExpired(ctx, "k1", "m1", now.Add(2*time.Hour)))
	_, err = s.Idempotency.FindActive(ctx, "k1", "m1", now)
	assert.ErrorIs(t, err, ErrNotFound)
}
