package middlewares

import (
	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware reads the dashboard token from the query string,
// since browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(auth MerchantAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		merchant, err := auth.MerchantFromToken(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}

		c.Set(merchantKey, merchant)
		c.Next()
	}
}
