package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

// respondServiceError maps a service failure onto the JSON error envelope.
// Anything that is not a *services.Error is logged and hidden behind fallback.
func respondServiceError(c *gin.Context, err error, fallback string) {
	respondServiceErrorCode(c, err, services.CodeInternal, fallback)
}

// respondPaymentError reports unexpected payment-creation failures as
// PAYMENT_FAILED.
func respondPaymentError(c *gin.Context, err error) {
	respondServiceErrorCode(c, err, services.CodePaymentFailed, "Payment processing failed")
}

func respondServiceErrorCode(c *gin.Context, err error, internalCode, fallback string) {
	var apiErr *services.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			utils.ErrorLogger.WithField("path", c.FullPath()).Errorf("%s: %v", apiErr.Description, err)
			utils.RespondError(c, apiErr.Status, internalCode, fallback)
			return
		}
		utils.RespondError(c, apiErr.Status, apiErr.Code, apiErr.Description)
		return
	}
	utils.ErrorLogger.WithField("path", c.FullPath()).Errorf("%s: %v", fallback, err)
	utils.RespondError(c, http.StatusInternalServerError, internalCode, fallback)
}

func respondBadRequest(c *gin.Context, description string) {
	utils.RespondError(c, http.StatusBadRequest, services.CodeBadRequest, description)
}

func respondNotFound(c *gin.Context, description string) {
	utils.RespondError(c, http.StatusNotFound, services.CodeNotFound, description)
}
