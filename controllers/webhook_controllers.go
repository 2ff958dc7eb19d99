package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

type WebhookController struct {
	Webhooks  *services.WebhookService
	Merchants *services.MerchantService
}

func NewWebhookController(webhooks *services.WebhookService, merchants *services.MerchantService) *WebhookController {
	return &WebhookController{Webhooks: webhooks, Merchants: merchants}
}

// ListWebhooks -> GET /api/v1/webhooks?limit=10&offset=0
func (wc *WebhookController) ListWebhooks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := wc.Webhooks.ListWebhookLogs(c.Request.Context(), middlewares.CurrentMerchant(c).ID, limit, offset)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch webhook logs")
		return
	}
	utils.RespondJSON(c, http.StatusOK, page)
}

func (wc *WebhookController) RetryWebhook(c *gin.Context) {
	result, err := wc.Webhooks.ResetWebhookLogForRetry(c.Request.Context(), c.Param("webhook_id"), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to retry webhook")
		return
	}
	if result == nil {
		respondNotFound(c, "Webhook log not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, result)
}

func (wc *WebhookController) GetConfig(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, wc.Merchants.GetWebhookConfig(middlewares.CurrentMerchant(c)))
}

// UpdateConfig accepts {"webhook_url": string|null}; null or "" clears it.
func (wc *WebhookController) UpdateConfig(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	var url *string
	if raw, ok := body["webhook_url"]; ok && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			respondBadRequest(c, "webhook_url must be a string or null")
			return
		}
		url = &s
	}

	cfg, err := wc.Merchants.UpdateWebhookURL(c.Request.Context(), middlewares.CurrentMerchant(c), url)
	if err != nil {
		respondServiceError(c, err, "Failed to save webhook configuration")
		return
	}
	utils.RespondJSON(c, http.StatusOK, cfg)
}

func (wc *WebhookController) RegenerateSecret(c *gin.Context) {
	secret, err := wc.Merchants.RegenerateWebhookSecret(c.Request.Context(), middlewares.CurrentMerchant(c))
	if err != nil {
		respondServiceError(c, err, "Failed to regenerate webhook secret")
		return
	}
	utils.RespondJSON(c, http.StatusOK, gin.H{"webhook_secret": secret})
}

func (wc *WebhookController) SendTest(c *gin.Context) {
	result, err := wc.Webhooks.SendTestWebhook(c.Request.Context(), middlewares.CurrentMerchant(c).ID)
	if err != nil {
		respondServiceError(c, err, "Failed to send test webhook")
		return
	}
	if result.Skipped {
		utils.RespondJSON(c, http.StatusOK, gin.H{"skipped": true, "message": "Webhook URL not configured"})
		return
	}
	utils.RespondJSON(c, http.StatusOK, gin.H{"scheduled": true, "webhook_id": result.LogID})
}
