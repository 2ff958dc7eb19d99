package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/utils"
)

// Pinger checks ledger connectivity. repository.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	DB Pinger
}

func NewHealthController(db Pinger) *HealthController {
	return &HealthController{DB: db}
}

// Health always answers 200; the database field reports connectivity.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "connected"
	if err := hc.DB.Ping(ctx); err != nil {
		utils.ErrorLogger.Warnf("Health check: database unreachable: %v", err)
		database = "disconnected"
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
