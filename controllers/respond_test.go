package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/manasa1349/payment-gateway-task/services"
	"github.com/manasa1349/payment-gateway-task/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordError(t *testing.T, respond func(c *gin.Context)) (int, utils.ErrorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
	respond(c)

	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp.Error
}

func TestRespondPaymentError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{"validation error passes through", services.Validation(services.CodeInvalidVPA, "Invalid VPA format"), http.StatusBadRequest, services.CodeInvalidVPA, "Invalid VPA format"},
		{"internal error is hidden", services.Internal("Failed to create payment", errors.New("db down")), http.StatusInternalServerError, services.CodePaymentFailed, "Payment processing failed"},
		{"unknown error is hidden", errors.New("boom"), http.StatusInternalServerError, services.CodePaymentFailed, "Payment processing failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := recordError(t, func(c *gin.Context) { respondPaymentError(c, tt.err) })
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.description, body.Description)
		})
	}
}

func TestRespondServiceErrorUsesInternalCode(t *testing.T) {
	status, body := recordError(t, func(c *gin.Context) {
		respondServiceError(c, errors.New("boom"), "Failed to fetch payment")
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, services.CodeInternal, body.Code)
	assert.Equal(t, "Failed to fetch payment", body.Description)
}
