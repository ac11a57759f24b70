package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumely/internal/auth"
)

const (
	userIDKey   = "userID"
	usernameKey = "username"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 与 username 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// UsernameFromContext 返回上下文中的用户名；未认证时 ok 为 false。
func UsernameFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(usernameKey)
	if !exists {
		return "", false
	}
	username, ok := value.(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}

// UserIDFromContext 返回上下文中的用户 ID。
func UserIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	if !ok {
		return 0, false
	}
	return id, true
}
