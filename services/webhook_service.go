package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Jobs that arrive this early for a log are duplicates of a scheduled one.
const earlyDeliveryTolerance = time.Second

type EmitResult struct {
	Skipped bool   `json:"skipped,omitempty"`
	LogID   string `json:"webhook_id,omitempty"`
}

type RetryResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type WebhookLogPage struct {
	Data   []WebhookLogView `json:"data"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// WebhookService records events and delivers them with bounded retries.
type WebhookService struct {
	store    *repository.Store
	jobs     JobEnqueuer
	client   *WebhookClient
	schedule utils.RetrySchedule
	live     LivePublisher
	now      func() time.Time
}

func NewWebhookService(store *repository.Store, jobs JobEnqueuer, client *WebhookClient, schedule utils.RetrySchedule, live LivePublisher) *WebhookService {
	return &WebhookService{
		store:    store,
		jobs:     jobs,
		client:   client,
		schedule: schedule,
		live:     orNoop(live),
		now:      time.Now,
	}
}

// Emit serializes the envelope once; those bytes are stored, signed and sent.
func (s *WebhookService) Emit(ctx context.Context, merchantID, event string, data interface{}) (EmitResult, error) {
	payload, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: s.now().Unix(),
		Data:      data,
	})
	if err != nil {
		return EmitResult{}, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return s.CreateWebhookLogAndEnqueue(ctx, merchantID, event, payload)
}

// CreateWebhookLogAndEnqueue is a no-op for merchants without a webhook URL.
func (s *WebhookService) CreateWebhookLogAndEnqueue(ctx context.Context, merchantID, event string, payload json.RawMessage) (EmitResult, error) {
	merchant, err := s.store.Merchants.FindByID(ctx, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return EmitResult{Skipped: true}, nil
	}
	if err != nil {
		return EmitResult{}, err
	}
	if !merchant.HasWebhook() {
		return EmitResult{Skipped: true}, nil
	}

	now := s.now()
	log := &models.WebhookLog{
		ID:          uuid.NewString(),
		MerchantID:  merchantID,
		Event:       event,
		Payload:     datatypes.JSON(payload),
		Status:      models.WebhookStatusPending,
		Attempts:    0,
		NextRetryAt: &now,
	}
	if err := s.store.WebhookLogs.Create(ctx, log); err != nil {
		return EmitResult{}, fmt.Errorf("create webhook log: %w", err)
	}

	result := EmitResult{LogID: log.ID}
	if err := s.jobs.EnqueueWebhook(ctx, log.ID, 0); err != nil {
		return result, fmt.Errorf("enqueue webhook %s: %w", log.ID, err)
	}
	return result, nil
}

// Deliver makes exactly one delivery attempt for a log. Delivery failures
// are folded into the log; only store errors are returned.
func (s *WebhookService) Deliver(ctx context.Context, logID string) error {
	entry := utils.InfoLogger.WithField("webhook_id", logID)

	log, err := s.store.WebhookLogs.FindByID(ctx, logID)
	if errors.Is(err, repository.ErrNotFound) {
		entry.Warn("Webhook log not found; skipping")
		return nil
	}
	if err != nil {
		return err
	}
	if log.Status != models.WebhookStatusPending {
		return nil
	}
	now := s.now()
	if log.NextRetryAt != nil && log.NextRetryAt.Sub(now) > earlyDeliveryTolerance {
		entry.Debug("Delivery not due yet; skipping duplicate job")
		return nil
	}

	merchant, err := s.store.Merchants.FindByID(ctx, log.MerchantID)
	if err != nil {
		return fmt.Errorf("load merchant %s: %w", log.MerchantID, err)
	}
	if !merchant.HasWebhook() {
		entry.Info("Webhook URL cleared; skipping")
		return nil
	}

	result := s.client.Send(ctx, *merchant.WebhookURL, log.Payload, merchant.WebhookSecret)
	attemptedAt := s.now()
	attempt := repository.DeliveryAttempt{
		Attempts:    log.Attempts + 1,
		AttemptedAt: attemptedAt,
	}
	if result.StatusCode != 0 {
		code := result.StatusCode
		attempt.ResponseCode = &code
	}
	body := result.Body
	if result.Err != nil {
		body = result.Err.Error()
	}
	attempt.ResponseBody = &body

	var next time.Time
	var retry bool
	switch {
	case result.Success():
		attempt.Status = models.WebhookStatusSuccess
	default:
		next, retry = s.schedule.NextRetryAt(attempt.Attempts, attemptedAt)
		if retry {
			attempt.Status = models.WebhookStatusPending
			attempt.NextRetryAt = &next
		} else {
			attempt.Status = models.WebhookStatusFailed
		}
	}

	applied, err := s.store.WebhookLogs.RecordAttempt(ctx, log.ID, log.Attempts, log.Generation, attempt)
	if err != nil {
		return fmt.Errorf("record webhook attempt: %w", err)
	}
	if !applied {
		entry.Info("Webhook log changed during delivery; discarding attempt")
		return nil
	}

	fields := logrus.Fields{"event": log.Event, "attempt": attempt.Attempts, "status": attempt.Status, "response_code": result.StatusCode}
	switch attempt.Status {
	case models.WebhookStatusSuccess:
		entry.WithFields(fields).Info("Webhook delivered")
	case models.WebhookStatusFailed:
		utils.ErrorLogger.WithField("webhook_id", logID).WithFields(fields).Errorf("Webhook failed after %d attempts", attempt.Attempts)
	default:
		delay := next.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		if err := s.jobs.EnqueueWebhook(ctx, log.ID, delay); err != nil {
			utils.ErrorLogger.WithField("webhook_id", logID).Errorf("Failed to schedule webhook retry: %v", err)
		} else {
			entry.WithFields(fields).Infof("Webhook retry scheduled at %s", next.UTC().Format(time.RFC3339))
		}
	}

	s.publish(ctx, log.ID)
	return nil
}

// ResetWebhookLogForRetry restarts the full attempt budget. Returns nil
// when the log does not exist for the merchant.
func (s *WebhookService) ResetWebhookLogForRetry(ctx context.Context, webhookID, merchantID string) (*RetryResult, error) {
	ok, err := s.store.WebhookLogs.ResetForRetry(ctx, webhookID, merchantID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if err := s.jobs.EnqueueWebhook(ctx, webhookID, 0); err != nil {
		return nil, fmt.Errorf("enqueue webhook %s: %w", webhookID, err)
	}
	s.publish(ctx, webhookID)

	return &RetryResult{
		ID:      webhookID,
		Status:  models.WebhookStatusPending,
		Message: "Webhook retry scheduled",
	}, nil
}

func (s *WebhookService) ListWebhookLogs(ctx context.Context, merchantID string, limit, offset int) (*WebhookLogPage, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := s.store.WebhookLogs.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &WebhookLogPage{Data: make([]WebhookLogView, 0, len(logs)), Total: total, Limit: limit, Offset: offset}
	for i := range logs {
		page.Data = append(page.Data, NewWebhookLogView(&logs[i]))
	}
	return page, nil
}

// SendTestWebhook queues a webhook.test event for the merchant.
func (s *WebhookService) SendTestWebhook(ctx context.Context, merchantID string) (EmitResult, error) {
	return s.Emit(ctx, merchantID, models.EventWebhookTest, map[string]string{
		"message": "This is a test webhook",
	})
}

func (s *WebhookService) publish(ctx context.Context, logID string) {
	log, err := s.store.WebhookLogs.FindByID(ctx, logID)
	if err != nil {
		return
	}
	s.live.Publish(ctx, log.MerchantID, LiveWebhookUpdated, NewWebhookLogView(log))
}
