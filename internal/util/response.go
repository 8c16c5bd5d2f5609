package util

import (
	"errors"
	"net/http"

	"proctorx_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Success: false, Error: message})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context) {
	Fail(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Fail(c, http.StatusForbidden, "Forbidden")
}

func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, "Resource not found")
}

func Conflict(c *gin.Context, message string) {
	Fail(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// HandleError maps a domain error to its HTTP status. Store/collaborator
// errors fall through to a logged 500 with a generic body.
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrTestHasNoQuestions):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDeactivated):
		Fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrTestNotAccessible):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrQuestionNotInTest):
		NotFound(c)
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAttemptLimitExceeded),
		errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrQuestionsLocked),
		errors.Is(err, ErrSubmissionClosed),
		errors.Is(err, ErrTestArchived),
		errors.Is(err, ErrAccessCodeExhausted):
		Conflict(c, err.Error())
	case errors.Is(err, ErrRateLimited):
		Fail(c, http.StatusTooManyRequests, err.Error())
	default:
		LogInternalError(c, err)
	}
}
