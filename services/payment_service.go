package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

type CardDetails struct {
	Number      string     `json:"number"`
	ExpiryMonth FlexString `json:"expiry_month"`
	ExpiryYear  FlexString `json:"expiry_year"`
	CVV         string     `json:"cvv"`
	HolderName  string     `json:"holder_name"`
}

type CreatePaymentRequest struct {
	OrderID string       `json:"order_id"`
	Method  string       `json:"method"`
	VPA     string       `json:"vpa"`
	Card    *CardDetails `json:"card"`
}

// PaymentService validates payment requests and persists them as pending.
// Settlement happens later in SettlementProcessor.
type PaymentService struct {
	store       *repository.Store
	idempotency *IdempotencyGuard
	jobs        JobEnqueuer
	events      EventEmitter
	live        LivePublisher
	now         func() time.Time
}

func NewPaymentService(store *repository.Store, idempotency *IdempotencyGuard, jobs JobEnqueuer, events EventEmitter, live LivePublisher) *PaymentService {
	return &PaymentService{
		store:       store,
		idempotency: idempotency,
		jobs:        jobs,
		events:      events,
		live:        orNoop(live),
		now:         time.Now,
	}
}

// CreatePayment returns the serialized response so an idempotent replay can
// hand back the identical bytes.
func (s *PaymentService) CreatePayment(ctx context.Context, merchant *models.Merchant, order *models.Order, req CreatePaymentRequest, idempotencyKey string) (json.RawMessage, error) {
	if order.MerchantID != merchant.ID {
		return nil, NotFound("Order not found")
	}

	cached, hit, err := s.idempotency.Lookup(ctx, merchant.ID, idempotencyKey)
	if err != nil {
		return nil, Internal("Failed to check idempotency key", err)
	}
	if hit {
		return cached, nil
	}

	payment := &models.Payment{
		OrderID:    order.ID,
		MerchantID: merchant.ID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		Method:     strings.ToLower(strings.TrimSpace(req.Method)),
		Status:     models.PaymentStatusPending,
	}
	if verr := s.applyMethod(payment, req); verr != nil {
		return nil, verr
	}

	payment.ID, err = uniqueID(ctx, utils.PrefixPayment, s.store.Payments.Exists)
	if err != nil {
		return nil, Internal("Failed to allocate payment id", err)
	}
	if err := s.store.Payments.Create(ctx, payment); err != nil {
		return nil, Internal("Failed to create payment", err)
	}

	entry := utils.InfoLogger.WithFields(logrus.Fields{"payment_id": payment.ID, "merchant_id": merchant.ID})
	view := NewPaymentView(payment)

	data := map[string]interface{}{"payment": view}
	for _, event := range []string{models.EventPaymentCreated, models.EventPaymentPending} {
		if _, err := s.events.Emit(ctx, merchant.ID, event, data); err != nil {
			utils.ErrorLogger.WithField("payment_id", payment.ID).Errorf("Failed to emit %s: %v", event, err)
		}
	}
	if err := s.jobs.EnqueuePayment(ctx, payment.ID); err != nil {
		utils.ErrorLogger.WithField("payment_id", payment.ID).Errorf("Failed to enqueue settlement: %v", err)
	}
	s.live.Publish(ctx, merchant.ID, LivePaymentUpdated, view)

	body, err := json.Marshal(view)
	if err != nil {
		return nil, Internal("Failed to encode payment", err)
	}
	if err := s.idempotency.Store(ctx, merchant.ID, idempotencyKey, body); err != nil {
		utils.ErrorLogger.WithField("payment_id", payment.ID).Errorf("Failed to store idempotency key: %v", err)
	}

	entry.WithField("method", payment.Method).Info("Payment created")
	return body, nil
}

// applyMethod validates method-specific fields. Only the card's last four
// digits and network are copied onto the payment.
func (s *PaymentService) applyMethod(payment *models.Payment, req CreatePaymentRequest) *Error {
	switch payment.Method {
	case models.MethodUPI:
		if !utils.IsValidVPA(req.VPA) {
			return Validation(CodeInvalidVPA, "VPA format invalid")
		}
		vpa := req.VPA
		payment.VPA = &vpa

	case models.MethodCard:
		card := req.Card
		if card == nil || card.Number == "" {
			return Validation(CodeInvalidCard, "Card details missing")
		}
		if !utils.IsValidCardNumber(card.Number) {
			return Validation(CodeInvalidCard, "Card validation failed")
		}
		if !utils.IsValidExpiry(string(card.ExpiryMonth), string(card.ExpiryYear), s.now()) {
			return Validation(CodeExpiredCard, "Card expiry date invalid")
		}
		network := utils.DetectCardNetwork(card.Number)
		last4 := utils.CardLast4(card.Number)
		payment.CardNetwork = &network
		payment.CardLast4 = &last4

	default:
		return BadRequest("Unsupported payment method")
	}
	return nil
}

// CreatePublicPayment serves the hosted checkout, which knows only the order.
func (s *PaymentService) CreatePublicPayment(ctx context.Context, req CreatePaymentRequest) (json.RawMessage, error) {
	if req.OrderID == "" {
		return nil, BadRequest("order_id is required")
	}
	order, err := s.store.Orders.FindByID(ctx, req.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Order not found")
	}
	if err != nil {
		return nil, Internal("Failed to load order", err)
	}

	merchant, err := s.store.Merchants.FindByID(ctx, order.MerchantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, Internal("Failed to load merchant", err)
	}
	if merchant == nil || !merchant.IsActive {
		return nil, BadRequest("Invalid merchant")
	}

	return s.CreatePayment(ctx, merchant, order, req, "")
}

// CapturePayment marks a successful payment's funds as captured.
func (s *PaymentService) CapturePayment(ctx context.Context, paymentID, merchantID string, amount int64) (*PaymentView, error) {
	payment, err := s.store.Payments.FindByIDForMerchant(ctx, paymentID, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Payment not found")
	}
	if err != nil {
		return nil, Internal("Failed to load payment", err)
	}

	if payment.Status != models.PaymentStatusSuccess {
		return nil, BadRequest("Payment not in capturable state")
	}
	if amount <= 0 {
		return nil, BadRequest("Capture amount must be positive")
	}
	if amount > payment.Amount {
		return nil, BadRequest("Capture amount exceeds payment amount")
	}

	if err := s.store.Payments.MarkCaptured(ctx, paymentID, merchantID); err != nil {
		return nil, Internal("Failed to capture payment", err)
	}

	updated, err := s.store.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, Internal("Failed to load payment", err)
	}
	view := NewPaymentView(updated)
	s.live.Publish(ctx, merchantID, LivePaymentUpdated, view)
	return &view, nil
}

// GetPaymentByID returns nil when the payment does not exist for the merchant.
func (s *PaymentService) GetPaymentByID(ctx context.Context, paymentID, merchantID string) (*PaymentView, error) {
	payment, err := s.store.Payments.FindByIDForMerchant(ctx, paymentID, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *PaymentService) GetPublicPayment(ctx context.Context, paymentID string) (*PublicPaymentView, error) {
	payment, err := s.store.Payments.FindByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &PublicPaymentView{
		ID:       payment.ID,
		OrderID:  payment.OrderID,
		Status:   payment.Status,
		Amount:   payment.Amount,
		Currency: payment.Currency,
	}, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, merchantID string) ([]PaymentView, error) {
	payments, err := s.store.Payments.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	views := make([]PaymentView, 0, len(payments))
	for i := range payments {
		views = append(views, NewPaymentView(&payments[i]))
	}
	return views, nil
}
