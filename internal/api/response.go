package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/apperr"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// DomainError 将领域错误映射为 HTTP 状态码；未识别的错误一律 500，
// 对客户端只暴露通用消息。
func DomainError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		NotFound(c, apperr.Message(err))
	case apperr.KindBadRequest:
		BadRequest(c, apperr.Message(err))
	case apperr.KindForbidden:
		Forbidden(c, apperr.Message(err))
	default:
		Internal(c, "internal error")
	}
}
