package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voiceprint-server-go/internal/platform/errors"
)

// APIResponse 定义统一的接口返回结构体
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError 返回失败响应
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondDomainError maps a classified error to its status code and keeps
// the human-readable reason. Unclassified failures become "internal error".
func RespondDomainError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := "internal error"
	if status != http.StatusInternalServerError {
		message = errors.MessageOf(err, message)
	}
	_ = c.Error(err)
	RespondError(c, status, message, gin.H{"reason": string(errors.KindOf(err))})
}

// StatusFor returns the HTTP status of an error kind.
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindExtraction:
		return http.StatusUnprocessableEntity
	case errors.KindThreshold:
		return http.StatusUnauthorized
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
