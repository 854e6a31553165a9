package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error kinds. Clients branch on Code, not Error.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeAuth              = "AUTH_ERROR"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeReasonRequired    = "REASON_REQUIRED"
	CodeQuotaExceeded     = "QUOTA_EXCEEDED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUnknownPlan       = "UNKNOWN_PLAN"
	CodeTenantSuspended   = "TENANT_SUSPENDED"
	CodeInternal          = "INTERNAL"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends an error response with the given status and machine-readable code.
func Fail(c *gin.Context, status int, code, err string) {
	c.JSON(status, Body{Success: false, Code: code, Error: err})
}

// BadRequest sends 400 with a code and error message.
func BadRequest(c *gin.Context, code, err string) {
	Fail(c, http.StatusBadRequest, code, err)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, code, err string) {
	Fail(c, http.StatusUnauthorized, code, err)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, code, err string) {
	Fail(c, http.StatusForbidden, code, err)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	Fail(c, http.StatusNotFound, CodeNotFound, err)
}

// Conflict sends 409.
func Conflict(c *gin.Context, code, err string) {
	Fail(c, http.StatusConflict, code, err)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	Fail(c, http.StatusInternalServerError, CodeInternal, err)
}
