package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

// TestController exposes sandbox helpers for the checkout and automated graders.
type TestController struct {
	Merchants      *services.MerchantService
	Monitor        *services.PipelineMonitor
	TestMerchantID string
}

func NewTestController(merchants *services.MerchantService, monitor *services.PipelineMonitor, testMerchantID string) *TestController {
	return &TestController{Merchants: merchants, Monitor: monitor, TestMerchantID: testMerchantID}
}

func (tc *TestController) TestMerchant(c *gin.Context) {
	view, err := tc.Merchants.TestMerchant(c.Request.Context(), tc.TestMerchantID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch test merchant")
		return
	}
	utils.RespondJSON(c, http.StatusOK, view)
}

func (tc *TestController) JobStatus(c *gin.Context) {
	status, err := tc.Monitor.JobStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to fetch job status")
		return
	}
	utils.RespondJSON(c, http.StatusOK, status)
}
