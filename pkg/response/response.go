package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the unified API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes shared by handlers and services.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeServerError     = "SERVER_ERROR"
)

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       string // Machine-readable error code
	Message    string // Human-readable error message
}

func (e *AppError) Error() string {
	return e.Message
}

// New builds an AppError with an arbitrary status and code.
func New(status int, code, msg string) *AppError {
	return &AppError{HTTPStatus: status, Code: code, Message: msg}
}

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, msg)
}

func NewUnauthorized(msg string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func NewForbidden(msg string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, msg)
}

func NewNotFound(msg string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, msg)
}

func NewConflict(msg string) *AppError {
	return New(http.StatusConflict, CodeConflict, msg)
}

func NewServerError(msg string) *AppError {
	return New(http.StatusInternalServerError, CodeServerError, msg)
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its code and status
// are used; otherwise a generic 500 internal server error is returned.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Message: appErr.Message,
			Error:   appErr.Code,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Message: "internal server error",
		Error:   CodeServerError,
	})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Message: msg, Error: CodeBadRequest})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Message: msg, Error: CodeUnauthorized})
}

func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Message: msg, Error: CodeForbidden})
}

func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Message: msg, Error: CodeNotFound})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Message: msg, Error: CodeServerError})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Response{Message: msg, Error: code})
}
