package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/repository"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type CreateOrderRequest struct {
	Amount   *int64          `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  *string         `json:"receipt"`
	Notes    json.RawMessage `json:"notes"`
}

type OrderService struct {
	store *repository.Store
}

func NewOrderService(store *repository.Store) *OrderService {
	return &OrderService{store: store}
}

func (s *OrderService) CreateOrder(ctx context.Context, merchantID string, req CreateOrderRequest) (*OrderView, error) {
	if req.Amount == nil || *req.Amount < models.MinOrderAmount {
		return nil, BadRequest("amount must be at least 100")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	notes := []byte(req.Notes)
	if len(notes) == 0 || string(notes) == "null" {
		notes = []byte("{}")
	} else if !json.Valid(notes) || notes[0] != '{' {
		return nil, BadRequest("notes must be an object")
	}

	order := &models.Order{
		MerchantID: merchantID,
		Amount:     *req.Amount,
		Currency:   currency,
		Receipt:    req.Receipt,
		Notes:      datatypes.JSON(notes),
		Status:     models.OrderStatusCreated,
	}

	var err error
	order.ID, err = uniqueID(ctx, utils.PrefixOrder, s.store.Orders.Exists)
	if err != nil {
		return nil, Internal("Failed to allocate order id", err)
	}
	if err := s.store.Orders.Create(ctx, order); err != nil {
		return nil, Internal("Failed to create order", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": order.ID, "merchant_id": merchantID, "amount": order.Amount}).Info("Order created")
	view := NewOrderView(order)
	return &view, nil
}

// FindOrder loads a merchant's order for payment creation.
func (s *OrderService) FindOrder(ctx context.Context, orderID, merchantID string) (*models.Order, error) {
	order, err := s.store.Orders.FindByIDForMerchant(ctx, orderID, merchantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Order not found")
	}
	if err != nil {
		return nil, Internal("Failed to load order", err)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, merchantID string) (*OrderView, error) {
	order, err := s.FindOrder(ctx, orderID, merchantID)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *OrderService) GetPublicOrder(ctx context.Context, orderID string) (*PublicOrderView, error) {
	order, err := s.store.Orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound("Order not found")
	}
	if err != nil {
		return nil, Internal("Failed to load order", err)
	}
	return &PublicOrderView{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   order.Status,
	}, nil
}
