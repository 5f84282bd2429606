package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/pkg/logger"
	"github.com/joymathews/my-daily-log-app/pkg/security/auth"
)

const (
	bearerSchema = "Bearer "

	userSubKey  = "user_sub"
	usernameKey = "username"
)

// NewAuthMiddleware verifies the bearer token on every request and attaches
// the verified subject to the context. Nothing downstream of this middleware
// runs for a request without a valid token.
func NewAuthMiddleware(verifier auth.Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, bearerSchema) {
			c.String(http.StatusUnauthorized, "Missing or invalid Authorization header")
			c.Abort()
			return
		}

		tokenString := authHeader[len(bearerSchema):]

		claims, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			log.Error("Token verification failed", zap.Error(err))
			c.String(http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set(userSubKey, claims.Sub)
		c.Set(usernameKey, claims.Username)

		c.Next()
	}
}

// GetUserSub retrieves the verified subject from the context.
func GetUserSub(c *gin.Context) (string, bool) {
	sub, exists := c.Get(userSubKey)
	if !exists {
		return "", false
	}
	s, ok := sub.(string)
	return s, ok && s != ""
}
