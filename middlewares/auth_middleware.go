package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/models"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
)

const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderAPISecret = "X-Api-Secret"

	merchantKey = "merchant"
)

// MerchantAuthenticator resolves the calling merchant. services.MerchantService implements it.
type MerchantAuthenticator interface {
	Authenticate(ctx context.Context, apiKey, apiSecret string) (*models.Merchant, error)
	MerchantFromToken(ctx context.Context, token string) (*models.Merchant, error)
}

// AuthMiddleware accepts a dashboard bearer token or an API key/secret pair.
func AuthMiddleware(auth MerchantAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			merchant *models.Merchant
			err      error
		)
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			merchant, err = auth.MerchantFromToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		} else {
			merchant, err = auth.Authenticate(c.Request.Context(), c.GetHeader(HeaderAPIKey), c.GetHeader(HeaderAPISecret))
		}
		if err != nil {
			abortAuth(c, err)
			return
		}

		c.Set(merchantKey, merchant)
		c.Next()
	}
}

// CurrentMerchant returns the merchant set by AuthMiddleware.
func CurrentMerchant(c *gin.Context) *models.Merchant {
	v, ok := c.Get(merchantKey)
	if !ok {
		return nil
	}
	merchant, _ := v.(*models.Merchant)
	return merchant
}

func abortAuth(c *gin.Context, err error) {
	var apiErr *services.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			utils.ErrorLogger.Errorf("Authentication failed: %v", err)
		}
		utils.AbortWithError(c, apiErr.Status, apiErr.Code, apiErr.Description)
		return
	}
	utils.ErrorLogger.Errorf("Authentication failed: %v", err)
	utils.AbortWithError(c, http.StatusInternalServerError, services.CodeInternal, "Internal server error")
}
