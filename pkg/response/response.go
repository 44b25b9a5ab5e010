package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes for business-rule conflicts.
const (
	CodeAlreadyJoined     = "ALREADY_JOINED"
	CodeEventNotJoinable  = "EVENT_NOT_JOINABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeStorage           = "STORAGE_ERROR"
)

// Body is the standard API response envelope. Conflict responses carry the
// current authoritative state in State so callers can reconcile without
// re-polling.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	State   interface{} `json:"state,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// BadRequest sends 400 with the validation error code.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: CodeValidation})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: CodeNotFound})
}

// Conflict sends 409 with a machine-readable code and the current
// authoritative state of the contested resource.
func Conflict(c *gin.Context, code, err string, state interface{}) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Code: code, State: state})
}

// Unprocessable sends 422 with a machine-readable code and current state.
func Unprocessable(c *gin.Context, code, err string, state interface{}) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err, Code: code, State: state})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: CodeStorage})
}
