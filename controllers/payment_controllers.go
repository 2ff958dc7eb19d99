package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type PaymentController struct {
	Payments *services.PaymentService
	Orders   *services.OrderService
}

func NewPaymentController(payments *services.PaymentService, orders *services.OrderService) *PaymentController {
	return &PaymentController{Payments: payments, Orders: orders}
}

// CreatePayment -> POST /api/v1/payments. The body is written raw so an
// idempotent replay returns the same bytes.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	merchant := middlewares.CurrentMerchant(c)
	order, err := pc.Orders.FindOrder(c.Request.Context(), req.OrderID, merchant.ID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	body, err := pc.Payments.CreatePayment(c.Request.Context(), merchant, order, req, c.GetHeader(HeaderIdempotencyKey))
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	utils.RespondRaw(c, http.StatusCreated, body)
}

func (pc *PaymentController) ListPayments(c *gin.Context) {
	payments, err := pc.Payments.ListPayments(c.Request.Context(), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch payments")
		return
	}
	utils.RespondJSON(c, http.StatusOK, payments)
}

func (pc *PaymentController) GetPayment(c *gin.Context) {
	payment, err := pc.Payments.GetPaymentByID(c.Request.Context(), c.Param("payment_id"), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch payment")
		return
	}
	if payment == nil {
		respondNotFound(c, "Payment not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, payment)
}

func (pc *PaymentController) CapturePayment(c *gin.Context) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	payment, err := pc.Payments.CapturePayment(c.Request.Context(), c.Param("payment_id"), middlewares.CurrentMerchant(c).ID, req.Amount)
	if err != nil {
		respondServiceError(c, err, "Failed to capture payment")
		return
	}
	utils.RespondJSON(c, http.StatusOK, payment)
}

// CreatePublicPayment -> POST /api/v1/payments/public (hosted checkout)
func (pc *PaymentController) CreatePublicPayment(c *gin.Context) {
	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	body, err := pc.Payments.CreatePublicPayment(c.Request.Context(), req)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	utils.RespondRaw(c, http.StatusCreated, body)
}

func (pc *PaymentController) GetPublicPayment(c *gin.Context) {
	payment, err := pc.Payments.GetPublicPayment(c.Request.Context(), c.Param("payment_id"))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch payment")
		return
	}
	if payment == nil {
		respondNotFound(c, "Payment not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, payment)
}
