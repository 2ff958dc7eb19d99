package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

type RefundController struct {
	Refunds *services.RefundService
}

func NewRefundController(refunds *services.RefundService) *RefundController {
	return &RefundController{Refunds: refunds}
}

// CreateRefund -> POST /api/v1/payments/:payment_id/refunds
func (rc *RefundController) CreateRefund(c *gin.Context) {
	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	refund, err := rc.Refunds.CreateRefund(c.Request.Context(), c.Param("payment_id"), middlewares.CurrentMerchant(c).ID, req.Amount, req.Reason)
	if err != nil {
		respondServiceError(c, err, "Failed to create refund")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, refund)
}

func (rc *RefundController) GetRefund(c *gin.Context) {
	refund, err := rc.Refunds.GetRefund(c.Request.Context(), c.Param("refund_id"), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch refund")
		return
	}
	if refund == nil {
		respondNotFound(c, "Refund not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, refund)
}
