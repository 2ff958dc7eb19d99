package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder -> POST /api/v1/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), middlewares.CurrentMerchant(c).ID, req)
	if err != nil {
		respondServiceError(c, err, "Failed to create order")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, order)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), c.Param("order_id"), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, order)
}

// GetPublicOrder is unauthenticated; the checkout page only sees amount and status.
func (oc *OrderController) GetPublicOrder(c *gin.Context) {
	order, err := oc.Orders.GetPublicOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, order)
}
