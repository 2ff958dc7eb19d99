package services

import (
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeBadRequest     = "BAD_REQUEST_ERROR"
	CodeNotFound       = "NOT_FOUND_ERROR"
	CodeInvalidVPA     = "INVALID_VPA"
	CodeInvalidCard    = "INVALID_CARD"
	CodeExpiredCard    = "EXPIRED_CARD"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
	CodePaymentFailed  = "PAYMENT_FAILED"
)

// Error is a client-facing failure with an HTTP status and a stable code.
type Error struct {
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Description: description}
}

func NotFound(description string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Description: description}
}

func Validation(code, description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Description: description}
}

func Unauthorized(description string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthentication, Description: description}
}

func Internal(description string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Description: description, Err: err}
}
