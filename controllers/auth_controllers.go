package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

type AuthController struct {
	Merchants *services.MerchantService
}

func NewAuthController(merchants *services.MerchantService) *AuthController {
	return &AuthController{Merchants: merchants}
}

// Login -> POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	resp, err := ac.Merchants.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, "Login failed")
		return
	}
	utils.RespondJSON(c, http.StatusOK, resp)
}
