package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testMerchantID = "550e8400-e29b-41d4-a716-446655440000"

type fakeJobs struct {
	mu       sync.Mutex
	payments []string
	refunds  []string
	webhooks []string
	delays   []time.Duration
	err      error
}

func (f *fakeJobs) EnqueuePayment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, id)
	return f.err
}

func (f *fakeJobs) EnqueueRefund(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, id)
	return f.err
}

func (f *fakeJobs) EnqueueWebhook(_ context.Context, id string, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, id)
	f.delays = append(f.delays, delay)
	return f.err
}

type recordedEvent struct {
	merchantID string
	event      string
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) Emit(_ context.Context, merchantID, event string, _ interface{}) (EmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{merchantID: merchantID, event: event})
	return EmitResult{LogID: uuid.NewString()}, nil
}

func (f *fakeEmitter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.event)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func noSleep(context.Context, time.Duration) error { return nil }

func setupStore(t *testing.T) *repository.Store {
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
	return repository.NewStore(db)
}

func seedMerchant(t *testing.T, store *repository.Store, webhookURL string) *models.Merchant {
	t.Helper()
	m := &models.Merchant{
		ID:            testMerchantID,
		Name:          "Test Merchant",
		Email:         "test@example.com",
		APIKey:        "key_test_abc123",
		APISecret:     "secret_test_xyz789",
		WebhookSecret: "whsec_test_abc123",
		IsActive:      true,
	}
	if webhookURL != "" {
		m.WebhookURL = &webhookURL
	}
	require.NoError(t, store.Merchants.Create(context.Background(), m))
	return m
}

func seedOrder(t *testing.T, store *repository.Store, merchantID string, amount int64) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:         "order_" + uuid.NewString()[:16],
		MerchantID: merchantID,
		Amount:     amount,
		Currency:   models.DefaultCurrency,
		Status:     models.OrderStatusCreated,
	}
	require.NoError(t, store.Orders.Create(context.Background(), o))
	return o
}

func seedPaymentWithStatus(t *testing.T, store *repository.Store, merchantID string, amount int64, status string) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID:         "pay_" + uuid.NewString()[:16],
		OrderID:    "order_x",
		MerchantID: merchantID,
		Amount:     amount,
		Currency:   models.DefaultCurrency,
		Method:     models.MethodUPI,
		Status:     status,
	}
	require.NoError(t, store.Payments.Create(context.Background(), p))
	return p
}
