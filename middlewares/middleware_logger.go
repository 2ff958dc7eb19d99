package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/sirupsen/logrus"
)

const HeaderRequestID = "X-Request-ID"

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		}
		if merchant := CurrentMerchant(c); merchant != nil {
			fields["merchant_id"] = merchant.ID
		}

		entry := utils.InfoLogger.WithFields(fields)
		if c.Writer.Status() >= 500 {
			utils.ErrorLogger.WithFields(fields).Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}
