package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/manasa1349/payment-gateway-task/events"
	"github.com/manasa1349/payment-gateway-task/middlewares"
	"github.com/manasa1349/payment-gateway-task/utils"
)

type EventsController struct {
	Hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewEventsController accepts handshakes from any origin; the token query
// parameter is what authenticates the dashboard.
func NewEventsController(hub *events.Hub) *EventsController {
	return &EventsController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream -> GET /api/v1/events/ws?token=<jwt>
func (ec *EventsController) Stream(c *gin.Context) {
	merchant := middlewares.CurrentMerchant(c)

	ws, err := ec.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithField("merchant_id", merchant.ID).Warnf("Websocket upgrade failed: %v", err)
		return
	}

	utils.InfoLogger.WithField("merchant_id", merchant.ID).Info("Dashboard connected")
	ec.Hub.Serve(ws, merchant.ID)
	utils.InfoLogger.WithField("merchant_id", merchant.ID).Info("Dashboard disconnected")
}
