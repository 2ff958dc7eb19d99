package utils

import (
	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func RespondJSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// RespondRaw writes an already serialized JSON body untouched, so replays
// are byte-identical to the original response.
func RespondRaw(c *gin.Context, code int, body []byte) {
	c.Data(code, "application/json; charset=utf-8", body)
}

func RespondError(c *gin.Context, status int, code, description string) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Description: description}})
}

// AbortWithError is RespondError for middlewares.
func AbortWithError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Description: description}})
}
